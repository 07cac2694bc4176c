package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/osdcloud/osd-infra/pkg/naming"
)

// InfraContext pairs a validated configuration with the naming context that
// every stack derives its resource names and tags from.
type InfraContext struct {
	Config  InfrastructureConfig
	Context naming.Context
}

// Loader reads the environment file for one (tenant, environment) pair from
// <BaseDir>/<tenant>/<env>.yaml.
type Loader struct {
	EnvName    string
	TenantName string
	BaseDir    string
}

func NewLoader(envName, tenantName, baseDir string) *Loader {
	if tenantName == "" {
		tenantName = "fr"
	}
	if baseDir == "" {
		baseDir = "config"
	}
	return &Loader{EnvName: envName, TenantName: tenantName, BaseDir: baseDir}
}

// StageName returns the CDK stage id for this loader's pair, e.g. "Fr-Stg".
func (l *Loader) StageName() string {
	return fmt.Sprintf("%s-%s", naming.ToPascal(l.TenantName), naming.ToPascal(l.EnvName))
}

// LoadRaw reads the YAML file and returns the document with every ${name}
// placeholder substituted. The 'variables' section is consumed in the
// process and does not appear in the result.
func (l *Loader) LoadRaw() (map[string]interface{}, error) {
	path := filepath.Join(l.BaseDir, l.TenantName, l.EnvName+".yaml")
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "configuration file not found: %s", path)
		}
		return nil, errors.Wrapf(err, "reading configuration file %s", path)
	}

	raw := make(map[string]interface{})
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return nil, errors.Wrapf(err, "parsing configuration file %s", path)
	}

	variables, err := popVariables(raw)
	if err != nil {
		return nil, err
	}
	if len(variables) == 0 {
		return raw, nil
	}

	resolved, err := ResolveVariables(variables)
	if err != nil {
		return nil, err
	}

	zap.S().Debugf("substituting variables: %v", sortedNames(resolved))
	substituted, err := Substitute(raw, resolved)
	if err != nil {
		return nil, err
	}
	return substituted.(map[string]interface{}), nil
}

// Load produces the full infrastructure context: substituted document,
// typed sections over defaults, validation, and the name overrides applied
// last so the naming context reflects them.
func (l *Loader) Load() (*InfraContext, error) {
	raw, err := l.LoadRaw()
	if err != nil {
		return nil, err
	}

	envOverride, _ := raw["env_name_override"].(string)
	tenantOverride, _ := raw["tenant_name_override"].(string)
	delete(raw, "env_name_override")
	delete(raw, "tenant_name_override")

	rawServices, _ := raw["ecs_services"].(map[string]interface{})
	delete(raw, "ecs_services")

	cfg := DefaultInfrastructureConfig()
	if err := decode(raw, &cfg); err != nil {
		return nil, errors.Wrap(err, "decoding configuration")
	}

	cfg.EcsServices, err = decodeServices(rawServices)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid configuration for %s/%s", l.TenantName, l.EnvName)
	}

	if envOverride != "" {
		l.EnvName = envOverride
	}
	if tenantOverride != "" {
		l.TenantName = tenantOverride
	}

	return &InfraContext{
		Config:  cfg,
		Context: naming.Context{EnvName: l.EnvName, TenantName: l.TenantName},
	}, nil
}

func popVariables(raw map[string]interface{}) (map[string]string, error) {
	rawVars, ok := raw["variables"]
	if !ok {
		return nil, nil
	}
	delete(raw, "variables")
	varsMap, ok := rawVars.(map[string]interface{})
	if !ok {
		return nil, errors.New("'variables' section must be a mapping")
	}
	return coerceVariables(varsMap), nil
}

// decodeServices builds the service map, applying defaults at every level:
// the service itself, each container, and each port mapping. A flat decode
// would zero the nested defaults because mapstructure allocates fresh slice
// elements.
func decodeServices(raw map[string]interface{}) (map[string]EcsServiceConfig, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	services := make(map[string]EcsServiceConfig, len(raw))
	for name, rawSvc := range raw {
		svcMap, ok := rawSvc.(map[string]interface{})
		if !ok {
			return nil, errors.Errorf("ecs_services.%s must be a mapping", name)
		}

		rawContainers, _ := svcMap["containers"].([]interface{})
		delete(svcMap, "containers")
		rawScaling, hasScaling := svcMap["auto_scaling"]
		delete(svcMap, "auto_scaling")

		svc := DefaultEcsServiceConfig()
		if err := decode(svcMap, &svc); err != nil {
			return nil, errors.Wrapf(err, "decoding ecs_services.%s", name)
		}

		if hasScaling {
			scaling := DefaultAutoScalingConfig()
			if err := decode(rawScaling, &scaling); err != nil {
				return nil, errors.Wrapf(err, "decoding ecs_services.%s.auto_scaling", name)
			}
			svc.AutoScaling = &scaling
		}

		for i, rawContainer := range rawContainers {
			container, err := decodeContainer(rawContainer)
			if err != nil {
				return nil, errors.Wrapf(err, "decoding ecs_services.%s.containers[%d]", name, i)
			}
			svc.Containers = append(svc.Containers, container)
		}
		services[name] = svc
	}
	return services, nil
}

func decodeContainer(raw interface{}) (ContainerDefinitionConfig, error) {
	container := DefaultContainerDefinitionConfig()
	containerMap, ok := raw.(map[string]interface{})
	if !ok {
		return container, errors.New("container definition must be a mapping")
	}

	rawMappings, _ := containerMap["port_mappings"].([]interface{})
	delete(containerMap, "port_mappings")

	if err := decode(containerMap, &container); err != nil {
		return container, err
	}
	for i, rawMapping := range rawMappings {
		mapping := DefaultPortMappingConfig()
		if err := decode(rawMapping, &mapping); err != nil {
			return container, errors.Wrapf(err, "port_mappings[%d]", i)
		}
		container.PortMappings = append(container.PortMappings, mapping)
	}
	return container, nil
}

func decode(raw interface{}, target interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}
