package main

import (
	"context"
	"log"
	"time"

	sidekick "github.com/hlxsites/sidekick-config"
	"github.com/hlxsites/sidekick-config/api"
	"github.com/hlxsites/sidekick-config/engine"
)

func main() {
	client, err := sidekick.NewClient(&sidekick.Options{
		RequestTimeout: 10 * time.Second,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	ctx := context.Background()

	added, err := client.AddConfig(ctx, engine.AssembleInput{
		GitURL:  "https://github.com/adobe/business-website",
		Project: "Business Website",
	})
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("added: %t", added)

	configs, err := client.Configs(ctx)
	if err != nil {
		log.Fatal(err)
	}
	for _, cfg := range configs {
		log.Printf("%s -> %s", cfg.ID(), engine.ComputeInnerHost(cfg.Owner, cfg.Repo, cfg.Ref))

		plugins, err := client.ResolvePlugins(ctx, cfg, api.EnvPreview, "/blog/article")
		if err != nil {
			log.Fatal(err)
		}
		for _, plugin := range plugins {
			log.Printf("  plugin %s (%d nested)", plugin.ID, len(plugin.Children))
		}
	}
}
