package arr

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/chatarr/chatarr/internal/config"
)

// Registry holds every configured backend client, keyed by media type
// and instance label. Selection is always by the typed MediaType
// value, never by comparing translated display strings.
type Registry struct {
	clients map[MediaType][]*Client
}

// NewRegistry builds clients for every configured instance. Media
// types without instances are simply absent from the registry.
func NewRegistry(cfg *config.Config, logger *logrus.Logger) (*Registry, error) {
	r := &Registry{clients: make(map[MediaType][]*Client)}

	for mediaType, arrCfg := range map[MediaType]config.Arr{
		MediaTypeMovie:  cfg.Radarr,
		MediaTypeSeries: cfg.Sonarr,
		MediaTypeMusic:  cfg.Lidarr,
	} {
		for _, inst := range arrCfg.Instances {
			client, err := NewClient(mediaType, inst, arrCfg, logger)
			if err != nil {
				return nil, fmt.Errorf("failed to build %s client: %w", mediaType, err)
			}
			r.clients[mediaType] = append(r.clients[mediaType], client)
		}
	}
	return r, nil
}

// Has reports whether any instance is configured for the media type.
func (r *Registry) Has(mediaType MediaType) bool {
	return len(r.clients[mediaType]) > 0
}

// Types returns the media types with at least one instance, in a
// stable order.
func (r *Registry) Types() []MediaType {
	var types []MediaType
	for _, t := range []MediaType{MediaTypeMovie, MediaTypeSeries, MediaTypeMusic} {
		if r.Has(t) {
			types = append(types, t)
		}
	}
	return types
}

// Labels returns the instance labels configured for the media type, in
// config order.
func (r *Registry) Labels(mediaType MediaType) []string {
	var labels []string
	for _, c := range r.clients[mediaType] {
		labels = append(labels, c.Label())
	}
	return labels
}

// Client returns the instance with the given label. An empty label
// selects the first configured instance.
func (r *Registry) Client(mediaType MediaType, label string) (*Client, error) {
	instances := r.clients[mediaType]
	if len(instances) == 0 {
		return nil, fmt.Errorf("no %s instance configured", mediaType)
	}
	if label == "" {
		return instances[0], nil
	}
	for _, c := range instances {
		if c.Label() == label {
			return c, nil
		}
	}
	return nil, fmt.Errorf("no %s instance labelled %q", mediaType, label)
}

// All returns every configured client, for health checks.
func (r *Registry) All() []*Client {
	var all []*Client
	for _, t := range r.Types() {
		all = append(all, r.clients[t]...)
	}
	return all
}
