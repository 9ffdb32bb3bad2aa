package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/docmap/internal/cli/ui"
	"github.com/conduit-lang/docmap/internal/docstore"
	"github.com/conduit-lang/docmap/internal/orm/hooks"
	"github.com/conduit-lang/docmap/internal/orm/model"
	"github.com/conduit-lang/docmap/internal/orm/schema"
)

// NewStoreCommand creates the store command and its subcommands
func NewStoreCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Save, load and delete documents in the configured store",
		Long: `Work with documents in the configured document store.

Documents are stored as JSON under <prefix><root model>:<id>, so every
model of a hierarchy shares one key space and a stored subclass document
can be loaded through its root model.`,
	}

	cmd.AddCommand(newStorePutCommand())
	cmd.AddCommand(newStoreGetCommand())
	cmd.AddCommand(newStoreDeleteCommand())

	return cmd
}

// withDocuments opens the configured store for the duration of fn. Saves
// and deletes are audited at info level by an async hook.
func withDocuments(env *environment, fn func(docs *docstore.Documents) error) error {
	store, err := env.openStore()
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			env.logger.Warn("closing document store", zap.Error(err))
		}
	}()

	queue := hooks.NewAsyncQueue(hooks.QueueConfig{Workers: 1}, env.logger)
	queue.Start()
	defer queue.Shutdown()

	executor := hooks.NewExecutor(queue, env.logger)
	docs := docstore.NewDocuments(store, env.logger).WithHooks(executor)
	for _, m := range env.registry.Models() {
		if m.Parent() != nil {
			continue
		}
		docs.Attach(m)
		executor.RegisterAsync(m, hooks.AfterSave, "audit", audit(env.logger))
		executor.RegisterAsync(m, hooks.AfterDestroy, "audit", audit(env.logger))
	}
	return fn(docs)
}

func audit(logger *zap.Logger) hooks.Func {
	return func(ctx *hooks.Context, inst *model.Instance) error {
		logger.Info("document "+strings.TrimPrefix(ctx.Type().String(), "after_"),
			zap.String("model", inst.Model().Name()),
			zap.Any("id", inst.ID()))
		return nil
	}
}

// parseID coerces a command line identifier through the model's _id key,
// keeping the argument as given when it does not parse
func parseID(m *model.Model, arg string) interface{} {
	if key, ok := m.Lookup(schema.IDKey); ok {
		if id := key.Set(arg); id != nil {
			return id
		}
	}
	return arg
}

func newStorePutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "put <model> [file]",
		Short: "Validate and save a JSON document",
		Long: `Load a JSON document as an instance of the given model, validate it
and save it. A document without an _id gets a generated one. The saved
document is printed in stored form.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment(cmd)
			if err != nil {
				return err
			}
			m, err := env.model(cmd, args[0])
			if err != nil {
				return err
			}
			doc, err := readDocument(cmd, args, 1)
			if err != nil {
				return err
			}

			inst := m.Load(doc)
			if inst.ID() == nil {
				if key, ok := inst.Model().Lookup(schema.IDKey); ok {
					if id, ok := key.Generate(); ok {
						inst.Set(schema.IDKey, id)
					}
				}
			}

			return withDocuments(env, func(docs *docstore.Documents) error {
				if err := validate(cmd, env, inst); err != nil {
					return err
				}
				if err := docs.Save(cmd.Context(), inst); err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), ui.Success(fmt.Sprintf("saved %s", docstore.Key(m, inst.ID())), env.noColor))
				return writeDocument(cmd.OutOrStdout(), model.Serialize(inst))
			})
		},
	}
}

func newStoreGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <model> <id>",
		Short: "Print a stored document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment(cmd)
			if err != nil {
				return err
			}
			m, err := env.model(cmd, args[0])
			if err != nil {
				return err
			}

			return withDocuments(env, func(docs *docstore.Documents) error {
				inst, err := docs.Find(cmd.Context(), m, parseID(m, args[1]))
				if err != nil {
					return err
				}
				return writeDocument(cmd.OutOrStdout(), model.Serialize(inst))
			})
		},
	}
}

func newStoreDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <model> <id>",
		Short: "Delete a stored document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment(cmd)
			if err != nil {
				return err
			}
			m, err := env.model(cmd, args[0])
			if err != nil {
				return err
			}

			return withDocuments(env, func(docs *docstore.Documents) error {
				inst, err := docs.Find(cmd.Context(), m, parseID(m, args[1]))
				if err != nil {
					return err
				}
				if err := docs.Delete(cmd.Context(), inst); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("deleted %s", docstore.Key(m, inst.ID())), env.noColor))
				return nil
			})
		},
	}
}
