package supabase

import (
	"github.com/supabase-community/supabase-go"

	"paragoniusz-backend/internal/config"
)

// Client is the shared Supabase handle. Scoped clients (storage) are derived
// from it rather than dialing the project on their own.
type Client struct {
	Supabase *supabase.Client
	Config   *config.Config
}

func NewClient(cfg *config.Config) (*Client, error) {
	client, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabasePublishableKey, nil)
	if err != nil {
		return nil, err
	}

	return &Client{
		Supabase: client,
		Config:   cfg,
	}, nil
}
