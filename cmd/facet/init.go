package main

import (
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a facet.yml and starter schema",
	Long:  "Interactively create a facet.yml configuration file and, if none exists, a starter schema file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat("facet.yml"); err == nil {
			return fmt.Errorf("facet.yml already exists")
		}

		answers := struct {
			Schema string
			Driver string
			URL    string
			Cache  string
			Redis  string
			Port   int
		}{}

		if err := survey.AskOne(&survey.Input{
			Message: "Schema file:",
			Default: "facet.schema.yml",
		}, &answers.Schema, survey.WithValidator(survey.Required)); err != nil {
			return err
		}

		if err := survey.AskOne(&survey.Select{
			Message: "Storage backend:",
			Options: []string{"memory", "sqlite", "postgres"},
			Default: "memory",
		}, &answers.Driver); err != nil {
			return err
		}

		if answers.Driver != "memory" {
			def := "facet.db"
			if answers.Driver == "postgres" {
				def = "postgres://localhost:5432/facet"
			}
			if err := survey.AskOne(&survey.Input{
				Message: "Database URL:",
				Default: def,
			}, &answers.URL, survey.WithValidator(survey.Required)); err != nil {
				return err
			}
		}

		if err := survey.AskOne(&survey.Select{
			Message: "Response cache:",
			Options: []string{"memory", "redis"},
			Default: "memory",
		}, &answers.Cache); err != nil {
			return err
		}

		if answers.Cache == "redis" {
			if err := survey.AskOne(&survey.Input{
				Message: "Redis address:",
				Default: "localhost:6379",
			}, &answers.Redis, survey.WithValidator(survey.Required)); err != nil {
				return err
			}
		}

		if err := survey.AskOne(&survey.Input{
			Message: "Server port:",
			Default: "8080",
		}, &answers.Port); err != nil {
			return err
		}

		content := fmt.Sprintf(`schema: %s
log_level: info

server:
  host: 0.0.0.0
  port: %d

database:
  driver: %s
`, answers.Schema, answers.Port, answers.Driver)
		if answers.URL != "" {
			content += fmt.Sprintf("  url: %s\n", answers.URL)
		}
		content += fmt.Sprintf(`
cache:
  backend: %s
  ttl: 1m
`, answers.Cache)
		if answers.Redis != "" {
			content += fmt.Sprintf("  redis_addr: %s\n", answers.Redis)
		}

		if err := os.WriteFile("facet.yml", []byte(content), 0o644); err != nil {
			return fmt.Errorf("failed to write facet.yml: %w", err)
		}

		if _, err := os.Stat(answers.Schema); os.IsNotExist(err) {
			if err := os.WriteFile(answers.Schema, []byte(starterSchema), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", answers.Schema, err)
			}
			fmt.Printf("\n✓ Created %s\n", answers.Schema)
		}

		fmt.Println("✓ Created facet.yml")
		fmt.Println("\nGet started:")
		fmt.Println("  facet routes")
		fmt.Println("  facet serve")
		return nil
	},
}

// starterSchema is the schema written by init when none exists yet
const starterSchema = `kinds:
  - name: user
    plural: users
    fields:
      - {name: id, type: uuid, required: true}
      - {name: firstName, type: string, required: true}
      - {name: lastName, type: string}
      - {name: email, type: email, required: true, unique: true}
      - {name: posts, type: "ref[]", target: post, via: owner}
      - {name: comments, type: "ref[]", target: comment, via: owner}

  - name: post
    plural: posts
    fields:
      - {name: id, type: uuid, required: true}
      - {name: title, type: string, required: true}
      - {name: body, type: text, required: true}
      - {name: tags, type: "string[]"}
      - {name: owner, type: ref, required: true, target: user}
      - {name: comments, type: "ref[]", target: comment, via: post}

  - name: comment
    plural: comments
    fields:
      - {name: id, type: uuid, required: true}
      - {name: body, type: text, required: true}
      - {name: owner, type: ref, required: true, target: user}
      - {name: post, type: ref, required: true, target: post}
`
