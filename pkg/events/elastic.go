package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v8"
)

type ElasticConfig struct {
	URL      string
	Username string
	Password string
	Index    string
}

// Audit indexes every event as a document in the security audit index.
type Audit struct {
	es    *elasticsearch.Client
	index string
}

func NewAudit(cfg ElasticConfig) (*Audit, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: new client: %w", err)
	}
	return &Audit{es: es, index: cfg.Index}, nil
}

func (a *Audit) Publish(ctx context.Context, ev Event) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(ev); err != nil {
		return fmt.Errorf("elasticsearch: encode event: %w", err)
	}

	res, err := a.es.Index(
		a.index,
		&buf,
		a.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch: index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("elasticsearch: index %s: %s: %s", a.index, res.Status(), body)
	}
	return nil
}
