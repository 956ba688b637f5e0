package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/a-h/chatrelay/client"
)

type PingCommand struct {
	ServerURL string `help:"The URL of the chat relay server." env:"CHAT_RELAY_URL" default:"http://localhost:9020"`
	Pretty    bool   `help:"Pretty print the JSON output." default:"true"`
}

func (c PingCommand) Run(ctx context.Context) (err error) {
	crc := client.New(c.ServerURL, "")
	resp, err := crc.PingGet(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping %s: %w", c.ServerURL, err)
	}

	enc := json.NewEncoder(os.Stdout)
	if c.Pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(resp)
}
