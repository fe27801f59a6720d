package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/brackish/liquid/pkg/bind"
	"github.com/brackish/liquid/pkg/liquid"
)

var (
	dataPath string
	verbose  bool
	optimize bool
	dump     bool
)

var rootCmd = cobra.Command{
	Use:   "liquid",
	Short: "Render, check and inspect liquid templates",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	},
}

// loadData reads the --data file into a top-level store map. The format is
// chosen by extension: .yaml/.yml, .toml, or .json.
func loadData(path string) (bind.Map, error) {
	store := bind.Map{}
	if path == "" {
		return store, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading data file: %w", err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &store); err != nil {
			return nil, fmt.Errorf("decoding yaml data: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(raw, &store); err != nil {
			return nil, fmt.Errorf("decoding toml data: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(raw, &store); err != nil {
			return nil, fmt.Errorf("decoding json data: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported data format %q", ext)
	}
	return store, nil
}

func readTemplate(args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("no template specified")
	}
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("reading template: %w", err)
	}
	return string(raw), nil
}

var renderCmd = cobra.Command{
	Use:   "render [template]",
	Short: "Render a template with data from --data",
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := readTemplate(args)
		if err != nil {
			return err
		}
		store, err := loadData(dataPath)
		if err != nil {
			return err
		}
		tmpl, err := liquid.ParseTemplate(liquid.DefaultDialect(), src)
		if err != nil {
			return err
		}
		r := liquid.NewRenderer(bind.Resolver{})
		if optimize {
			if _, err := liquid.NewOptimizer(r).Optimize(tmpl.Root, bind.Store(store)); err != nil {
				return fmt.Errorf("optimizing: %w", err)
			}
		}
		out, err := tmpl.Render(r, bind.Store(store))
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	},
}

var checkCmd = cobra.Command{
	Use:   "check [template]",
	Short: "Parse a template and report the first error, if any",
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := readTemplate(args)
		if err != nil {
			return err
		}
		if err := liquid.SourceString(src).Validate(); err != nil {
			return err
		}
		fmt.Println("ok")
		return nil
	},
}

var astCmd = cobra.Command{
	Use:   "ast [template]",
	Short: "Print the parsed syntax tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := readTemplate(args)
		if err != nil {
			return err
		}
		tmpl, err := liquid.ParseTemplate(liquid.DefaultDialect(), src)
		if err != nil {
			return err
		}
		fmt.Print(liquid.Pretty(tmpl.Root))
		return nil
	},
}

var execCmd = cobra.Command{
	Use:   "exec [template]",
	Short: "Compile a template to a program and run it",
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := readTemplate(args)
		if err != nil {
			return err
		}
		store, err := loadData(dataPath)
		if err != nil {
			return err
		}
		tmpl, err := liquid.ParseTemplate(liquid.DefaultDialect(), src)
		if err != nil {
			return err
		}
		r := liquid.NewRenderer(bind.Resolver{})
		if optimize {
			if _, err := liquid.NewOptimizer(r).Optimize(tmpl.Root, bind.Store(store)); err != nil {
				return fmt.Errorf("optimizing: %w", err)
			}
		}
		prog, err := liquid.NewCompiler().Compile(tmpl.Root)
		if err != nil {
			return err
		}
		if dump {
			fmt.Fprint(os.Stderr, prog.Disassemble())
		}
		out, err := prog.Run(r, bind.Store(store))
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	renderCmd.Flags().StringVar(&dataPath, "data", "", "Data file (yaml, toml or json)")
	renderCmd.Flags().BoolVar(&optimize, "optimize", false, "Constant-fold the tree before rendering")
	rootCmd.AddCommand(&renderCmd)

	rootCmd.AddCommand(&checkCmd)
	rootCmd.AddCommand(&astCmd)

	execCmd.Flags().StringVar(&dataPath, "data", "", "Data file (yaml, toml or json)")
	execCmd.Flags().BoolVar(&optimize, "optimize", false, "Constant-fold the tree before compiling")
	execCmd.Flags().BoolVar(&dump, "dump", false, "Dump the compiled program to stderr")
	rootCmd.AddCommand(&execCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}
