package manifest

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/kbukum/resclient/middleware"
	"github.com/kbukum/resclient/transport"
)

// Definition is the declarative description of a client.
type Definition struct {
	Host string `yaml:"host" mapstructure:"host" validate:"omitempty,url"`
	// ClientID identifies the client; a UUID is generated when empty.
	ClientID                  string `yaml:"client_id" mapstructure:"client_id"`
	AllowResourceHostOverride bool   `yaml:"allow_resource_host_override" mapstructure:"allow_resource_host_override"`

	// Names of the special call-time params; empty keeps the defaults.
	BodyAttr    string `yaml:"body_attr" mapstructure:"body_attr"`
	HeadersAttr string `yaml:"headers_attr" mapstructure:"headers_attr"`
	AuthAttr    string `yaml:"auth_attr" mapstructure:"auth_attr"`
	TimeoutAttr string `yaml:"timeout_attr" mapstructure:"timeout_attr"`
	HostAttr    string `yaml:"host_attr" mapstructure:"host_attr"`

	Resources map[string]map[string]MethodDefinition `yaml:"resources" mapstructure:"resources" validate:"dive,dive"`

	// IgnoreGlobalMiddleware drops the config's middleware from every stack.
	IgnoreGlobalMiddleware bool `yaml:"ignore_global_middleware" mapstructure:"ignore_global_middleware"`
	// GatewayConfigs overlay the config's gateway configs.
	GatewayConfigs *transport.GatewayConfigs `yaml:"gateway_configs" mapstructure:"gateway_configs"`

	// Middleware runs after method middleware and before global middleware.
	Middleware []middleware.Factory `yaml:"-" mapstructure:"-" validate:"-"`
}

// MethodDefinition describes one method of a resource.
type MethodDefinition struct {
	Method string `yaml:"method" mapstructure:"method" validate:"omitempty,oneof=get post put patch delete head options"`
	Path   string `yaml:"path" mapstructure:"path" validate:"required"`
	// Host replaces the definition host for this method.
	Host            string            `yaml:"host" mapstructure:"host" validate:"omitempty,url"`
	Headers         map[string]string `yaml:"headers" mapstructure:"headers"`
	Params          map[string]any    `yaml:"params" mapstructure:"params"`
	QueryParamAlias map[string]string `yaml:"query_param_alias" mapstructure:"query_param_alias"`

	BodyAttr    string `yaml:"body_attr" mapstructure:"body_attr"`
	HeadersAttr string `yaml:"headers_attr" mapstructure:"headers_attr"`
	AuthAttr    string `yaml:"auth_attr" mapstructure:"auth_attr"`
	TimeoutAttr string `yaml:"timeout_attr" mapstructure:"timeout_attr"`
	HostAttr    string `yaml:"host_attr" mapstructure:"host_attr"`

	// Middleware runs first in the stacks of this method.
	Middleware []middleware.Factory `yaml:"-" mapstructure:"-" validate:"-"`
}

// LoadFile reads a definition from a YAML or JSON file. Resource and method
// names keep their case.
func LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("manifest: parsing %s: %w", path, err)
	}
	return &def, nil
}
