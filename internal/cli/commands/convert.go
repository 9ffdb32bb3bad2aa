package commands

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/docmap/internal/cli/ui"
	"github.com/conduit-lang/docmap/internal/orm/model"
	"github.com/conduit-lang/docmap/internal/orm/validation"
)

// NewConvertCommand creates the convert command
func NewConvertCommand() *cobra.Command {
	var skipValidation bool

	cmd := &cobra.Command{
		Use:   "convert <model> [file]",
		Short: "Normalize a JSON document through a model",
		Long: `Read a JSON document, load it as an instance of the given model and
print it back in stored form.

Values are coerced to their declared key types, defaults are applied and
the _type discriminator selects a subclass when it names one. The document
is read from the file argument, or from standard input when it is omitted
or "-".`,
		Example: `  docmap convert Person person.json
  cat person.json | docmap convert Person`,
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
			if !skipValidation {
				if err := validate(cmd, env, inst); err != nil {
					return err
				}
			}

			return writeDocument(cmd.OutOrStdout(), model.Serialize(inst))
		},
	}

	cmd.Flags().BoolVar(&skipValidation, "skip-validation", false, "do not run validation rules")

	return cmd
}

// validate runs inst's rules and reports failures in the CLI error format
func validate(cmd *cobra.Command, env *environment, inst *model.Instance) error {
	err := inst.Validate(cmd.Context())
	if err == nil {
		return nil
	}

	var verrs *validation.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make([]string, 0, len(verrs.Fields))
	for field := range verrs.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var details []string
	for _, field := range fields {
		for _, msg := range verrs.Fields[field] {
			details = append(details, fmt.Sprintf("%s: %s", field, msg))
		}
	}

	name := inst.Model().Name()
	ui.ValidationFailed(name, details, env.noColor).Write(cmd.ErrOrStderr())
	return fmt.Errorf("%s is invalid: %d error(s)", name, verrs.Count())
}
