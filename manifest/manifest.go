package manifest

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/kbukum/resclient/config"
	apperrors "github.com/kbukum/resclient/errors"
	"github.com/kbukum/resclient/middleware"
	"github.com/kbukum/resclient/transport"
)

type method struct {
	descriptor *transport.MethodDescriptor
	middleware []middleware.Factory
}

// Manifest is a validated definition bound to a config.
type Manifest struct {
	clientID       string
	host           string
	resources      map[string]map[string]*method
	middleware     []middleware.Factory
	gatewayConfigs transport.GatewayConfigs
	store          *config.ContextStore
}

// New validates def and expands it against cfg. Method verbs are
// normalized to lower case before validation.
func New(def *Definition, cfg *config.Config) (*Manifest, error) {
	if def == nil {
		return nil, apperrors.InvalidManifest(nil)
	}
	if cfg == nil {
		cfg = &config.Config{}
		cfg.ApplyDefaults()
	}

	normalized := normalize(def)
	if errs := validateDefinition(normalized); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Field + ": " + e.Message
		}
		slices.Sort(msgs)
		return nil, apperrors.InvalidManifest(strings.Join(msgs, "; ")).WithDetail("fields", errs)
	}

	m := &Manifest{
		clientID:       normalized.ClientID,
		host:           normalized.Host,
		resources:      make(map[string]map[string]*method, len(normalized.Resources)),
		middleware:     slices.Clone(normalized.Middleware),
		gatewayConfigs: cfg.GatewayConfigs.Merge(normalized.GatewayConfigs),
		store:          cfg.Context,
	}
	if m.clientID == "" {
		m.clientID = uuid.NewString()
	}
	if !normalized.IgnoreGlobalMiddleware {
		m.middleware = append(m.middleware, cfg.Middleware...)
	}

	for resource, methods := range normalized.Resources {
		m.resources[resource] = make(map[string]*method, len(methods))
		for name, md := range methods {
			m.resources[resource][name] = &method{
				descriptor: descriptorFor(normalized, md),
				middleware: slices.Clone(md.Middleware),
			}
		}
	}
	return m, nil
}

func normalize(def *Definition) *Definition {
	out := *def
	out.Resources = make(map[string]map[string]MethodDefinition, len(def.Resources))
	for resource, methods := range def.Resources {
		out.Resources[resource] = make(map[string]MethodDefinition, len(methods))
		for name, md := range methods {
			md.Method = strings.ToLower(strings.TrimSpace(md.Method))
			out.Resources[resource][name] = md
		}
	}
	return &out
}

func descriptorFor(def *Definition, md MethodDefinition) *transport.MethodDescriptor {
	return &transport.MethodDescriptor{
		Host:                      or(md.Host, def.Host),
		AllowResourceHostOverride: def.AllowResourceHostOverride,
		Path:                      md.Path,
		Method:                    or(md.Method, "get"),
		Headers:                   md.Headers,
		Params:                    md.Params,
		QueryParamAlias:           md.QueryParamAlias,
		BodyAttr:                  or(md.BodyAttr, def.BodyAttr),
		HeadersAttr:               or(md.HeadersAttr, def.HeadersAttr),
		AuthAttr:                  or(md.AuthAttr, def.AuthAttr),
		TimeoutAttr:               or(md.TimeoutAttr, def.TimeoutAttr),
		HostAttr:                  or(md.HostAttr, def.HostAttr),
	}
}

func or(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

// ClientID returns the client identifier.
func (m *Manifest) ClientID() string { return m.clientID }

// Host returns the definition host.
func (m *Manifest) Host() string { return m.host }

// GatewayConfigs returns the config's gateway configs overlaid with the
// definition's.
func (m *Manifest) GatewayConfigs() transport.GatewayConfigs { return m.gatewayConfigs }

// ResourceNames returns the resource names in sorted order.
func (m *Manifest) ResourceNames() []string {
	names := make([]string, 0, len(m.resources))
	for name := range m.resources {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// MethodNames returns the method names of resource in sorted order.
func (m *Manifest) MethodNames(resource string) []string {
	methods := m.resources[resource]
	names := make([]string, 0, len(methods))
	for name := range methods {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// EachResource calls fn for every resource in sorted order with its sorted
// method names.
func (m *Manifest) EachResource(fn func(name string, methods []string)) {
	for _, name := range m.ResourceNames() {
		fn(name, m.MethodNames(name))
	}
}

// Method returns the descriptor of resource.name.
func (m *Manifest) Method(resource, name string) (*transport.MethodDescriptor, bool) {
	md, ok := m.resources[resource][name]
	if !ok {
		return nil, false
	}
	return md.descriptor, true
}

// CreateMiddleware builds one middleware instance per factory for a call of
// resource.name: method middleware first, then definition middleware, then
// global middleware. Every factory receives its own copy of the current
// context store snapshot.
func (m *Manifest) CreateMiddleware(resource, name string) []middleware.Middleware {
	mc := middleware.Context{
		ResourceName:   resource,
		ResourceMethod: name,
		Context:        m.store.Snapshot(),
		ClientID:       m.clientID,
	}

	var factories []middleware.Factory
	if md, ok := m.resources[resource][name]; ok {
		factories = append(factories, md.middleware...)
	}
	factories = append(factories, m.middleware...)

	stack := make([]middleware.Middleware, 0, len(factories))
	for _, f := range factories {
		if f == nil {
			continue
		}
		stack = append(stack, f(mc.WithContext(mc.Context)))
	}
	return stack
}

// String renders a short summary, e.g. "manifest(client-1: User, Blog)".
func (m *Manifest) String() string {
	return fmt.Sprintf("manifest(%s: %s)", m.clientID, strings.Join(m.ResourceNames(), ", "))
}
