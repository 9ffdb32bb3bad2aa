package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/docmap/internal/cli/config"
	"github.com/conduit-lang/docmap/internal/cli/ui"
	"github.com/conduit-lang/docmap/internal/docstore"
	"github.com/conduit-lang/docmap/internal/orm/document"
	"github.com/conduit-lang/docmap/internal/orm/model"
	"github.com/conduit-lang/docmap/internal/orm/schemafile"
)

// environment is what every command works against: the loaded config, a
// logger and the sealed model registry built from the schema file
type environment struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *model.Registry
	noColor  bool
}

func loadEnvironment(cmd *cobra.Command) (*environment, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if schema, _ := cmd.Flags().GetString("schema"); schema != "" {
		cfg.Schema = schema
	}

	logger, err := cfg.Logger()
	if err != nil {
		return nil, err
	}

	reg := model.NewRegistry(model.WithLogger(logger))
	if err := schemafile.LoadFile(cfg.Schema, reg); err != nil {
		return nil, err
	}
	reg.Seal()

	return &environment{
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		noColor:  noColor(cmd),
	}, nil
}

// model resolves a model name, printing suggestions when it is unknown
func (e *environment) model(cmd *cobra.Command, name string) (*model.Model, error) {
	if m, ok := e.registry.Lookup(name); ok {
		return m, nil
	}

	var known []string
	for _, m := range e.registry.Models() {
		known = append(known, m.Name())
	}
	ui.ModelNotFound(name, known, e.noColor).Write(cmd.ErrOrStderr())
	return nil, fmt.Errorf("%w: %s", model.ErrUnknownModel, name)
}

// openStore connects the configured document store backend
func (e *environment) openStore() (docstore.Store, error) {
	base := docstore.Config{Prefix: e.cfg.Store.Prefix, TTL: e.cfg.Store.TTL}

	switch e.cfg.Store.Backend {
	case config.BackendRedis:
		store, err := docstore.NewRedisStore(docstore.RedisConfig{
			Addr:     e.cfg.Store.Redis.Addr,
			Password: e.cfg.Store.Redis.Password,
			DB:       e.cfg.Store.Redis.DB,
			Config:   base,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to redis at %s: %w", e.cfg.Store.Redis.Addr, err)
		}
		return store, nil
	default:
		e.logger.Warn("using the in-memory store; documents are lost when the command exits")
		return docstore.NewMemoryStoreWithConfig(base), nil
	}
}

// readDocument parses a JSON document from the file named by args[index],
// or from the command's input when there is no such argument or it is "-"
func readDocument(cmd *cobra.Command, args []string, index int) (document.Document, error) {
	var r io.Reader = cmd.InOrStdin()
	if len(args) > index && args[index] != "-" {
		f, err := os.Open(args[index])
		if err != nil {
			return document.Document{}, err
		}
		defer f.Close()
		r = f
	}

	doc, err := document.Parse(r)
	if err != nil {
		return document.Document{}, fmt.Errorf("invalid JSON document: %w", err)
	}
	return doc, nil
}

// writeDocument prints doc as indented JSON
func writeDocument(w io.Writer, doc document.Document) error {
	data, err := doc.MarshalIndent("", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
