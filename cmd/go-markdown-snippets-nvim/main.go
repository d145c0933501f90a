package main

import (
	"log"

	"github.com/neovim/go-client/nvim/plugin"

	"go-markdown-snippets/internal/host"
)

// Connect to Neovim over stdio, register the handlers and serve requests.
// Logs go to stderr; stdout carries the RPC stream.
func main() {
	plugin.Main(func(p *plugin.Plugin) error {
		log.Println("[markdown-snippets] registering handlers")
		return host.Register(p)
	})
}
