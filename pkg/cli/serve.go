package cli

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/cyclecal/pkg/advice"
	"github.com/harrisonrobin/cyclecal/pkg/colors"
	"github.com/harrisonrobin/cyclecal/pkg/config"
	"github.com/harrisonrobin/cyclecal/pkg/tui"
)

func newTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the terminal calendar",
		Args:  cobra.NoArgs,
		RunE:  runTUI,
	}
}

func runTUI(cmd *cobra.Command, args []string) error {
	a, err := openApp(appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	palette, err := colors.NewPalette()
	if err != nil {
		log.Printf("Warning: could not load phase colors: %v", err)
		palette = colors.Default()
	}
	return tui.Run(cmd.Context(), a.ctrl, palette)
}

func newServeCmd() *cobra.Command {
	var addr, model, knowledge string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the advice HTTP service",
		Long: `Serves POST /advice backed by a Gemini model when GOOGLE_API_KEY is set,
and by the built-in per-phase table otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}
			if model == "" {
				model = cfg.Server.Model
			}
			if knowledge == "" {
				knowledge = cfg.Server.Knowledge
			}

			kb := advice.DefaultKnowledge()
			if knowledge != "" {
				if kb, err = advice.LoadKnowledge(knowledge); err != nil {
					return err
				}
				log.Printf("Using knowledge base %s", knowledge)
			}

			var gen advice.Generator
			if os.Getenv("GOOGLE_API_KEY") != "" {
				g, err := advice.NewGeminiGenerator(cmd.Context(), model, nil)
				if err != nil {
					return err
				}
				gen = g
				log.Printf("Using model %s", model)
			} else {
				log.Printf("Warning: GOOGLE_API_KEY not set, serving fallback advice only")
			}

			log.Printf("Advice service listening on %s", addr)
			return advice.NewServer(gen, advice.WithKnowledge(kb)).Run(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	cmd.Flags().StringVar(&model, "model", "", "Gemini model name (default from config)")
	cmd.Flags().StringVar(&knowledge, "knowledge", "", "YAML knowledge base replacing the built-in one")
	return cmd
}
