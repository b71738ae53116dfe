package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/facet-api/facet/internal/config"
	"github.com/facet-api/facet/internal/schema"
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "List the routes the schema exposes",
	Long:  "Load the schema and print every HTTP route it generates, grouped by kind",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadFrom(configPath)
		if err != nil {
			return err
		}
		reg, err := schema.LoadFile(cfg.Schema)
		if err != nil {
			return fmt.Errorf("failed to load schema: %w", err)
		}

		kindColor := color.New(color.FgCyan, color.Bold)
		methodColor := color.New(color.FgGreen)

		for _, name := range reg.List() {
			kind, _ := reg.Get(name)
			base := cfg.API.BaseURL + "/" + kind.Plural

			kindColor.Printf("%s\n", kind.Name)
			methodColor.Printf("  GET    ")
			fmt.Println(base)
			methodColor.Printf("  POST   ")
			fmt.Println(base)
			methodColor.Printf("  GET    ")
			fmt.Println(base + "/{id}")
			methodColor.Printf("  PUT    ")
			fmt.Println(base + "/{id}")
			methodColor.Printf("  DELETE ")
			fmt.Println(base + "/{id}")

			for _, f := range kind.Fields {
				if f.Type.IsReference() {
					methodColor.Printf("  GET    ")
					fmt.Println(base + "/{id}/" + f.Name)
				}
			}
			fmt.Println()
		}
		return nil
	},
}
