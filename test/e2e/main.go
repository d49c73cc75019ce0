package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
)

type configuration struct {
	AdminURL     string
	AdminKey     string
	DataPlaneURL string
	PluginName   string
	PodmanSocket string
	Network      string
	KeepRoutes   bool
}

var cfg configuration

func (c configuration) Validate() error {
	if c.AdminKey == "" {
		return errors.New("admin key is empty")
	}
	if _, err := url.Parse(c.AdminURL); err != nil {
		return fmt.Errorf("failed to parse admin url: %v", err)
	}
	if _, err := url.Parse(c.DataPlaneURL); err != nil {
		return fmt.Errorf("failed to parse data plane url: %v", err)
	}
	return nil
}

func main() {
	flag.StringVar(&cfg.AdminURL, "admin-url", "http://localhost:9180/apisix/admin", "Gateway admin API base URL")
	flag.StringVar(&cfg.AdminKey, "admin-key", "", "Gateway admin key")
	flag.StringVar(&cfg.DataPlaneURL, "data-url", "http://localhost:9080", "Gateway data plane URL")
	flag.StringVar(&cfg.PluginName, "plugin", "ai-proxy", "Required capability plugin")
	flag.StringVar(&cfg.PodmanSocket, "podman-socket", "", "Podman socket (enables topology assertions)")
	flag.StringVar(&cfg.Network, "network", "vutf-network", "Shared container network")
	flag.BoolVar(&cfg.KeepRoutes, "keep-routes", false, "Keep e2e routes after completion (useful for debugging)")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	zap.ReplaceGlobals(logger)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("failed to validate configuration: %v", err)
	}

	RegisterFailHandler(Fail)
	if !RunSpecs(&testing.T{}, "E2E Suite") {
		os.Exit(1)
	}
}
