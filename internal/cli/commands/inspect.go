package commands

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/docmap/internal/cli/ui"
	"github.com/conduit-lang/docmap/internal/orm/coerce"
	"github.com/conduit-lang/docmap/internal/orm/model"
)

// NewInspectCommand creates the inspect command
func NewInspectCommand() *cobra.Command {
	var dump bool

	cmd := &cobra.Command{
		Use:   "inspect [model]",
		Short: "Show the models declared by the schema",
		Long: `Show the models declared by the schema file.

Without arguments, lists every model with its parent and key counts.
With a model name, shows its keys, embedded associations and the
validation rules derived from the key options.`,
		Example: `  docmap inspect
  docmap inspect Person
  docmap inspect Person --dump`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(args) == 0 {
				renderModels(out, env.registry, env.noColor)
				return nil
			}

			m, err := env.model(cmd, args[0])
			if err != nil {
				return err
			}
			if dump {
				dumpModel(out, m)
				return nil
			}
			renderModel(out, m, env.noColor)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dump, "dump", false, "dump the raw key and rule structures")

	return cmd
}

func renderModels(w io.Writer, reg *model.Registry, noColor bool) {
	table := ui.NewTable(w, noColor, "Model", "Parent", "Keys", "Embeds", "Rules")
	for _, m := range reg.Models() {
		table.AddRow(
			m.Name(),
			parentName(m),
			strconv.Itoa(len(m.Keys())),
			strconv.Itoa(len(m.Associations())),
			strconv.Itoa(len(m.Rules().Rules())),
		)
	}
	table.Render()

	stats := reg.GetStats()
	fmt.Fprintf(w, "\n%d models (%d embeddable), %d keys, %d associations, %d rules\n",
		stats.Models, stats.Embeddable, stats.Keys, stats.Associations, stats.Rules)
}

func renderModel(w io.Writer, m *model.Model, noColor bool) {
	ui.Header(w, m.Name(), noColor)

	kv := ui.NewKeyValue(w, noColor)
	kv.Add("Parent", parentName(m))
	kv.Add("Root", m.Root().Name())
	kv.Add("Embeddable", strconv.FormatBool(m.IsEmbeddable()))
	var children []string
	for _, c := range m.Children() {
		children = append(children, c.Name())
	}
	kv.Add("Subclasses", orDash(strings.Join(children, ", ")))
	kv.Add("Accessors", orDash(strings.Join(m.Accessors(), ", ")))
	kv.Render()

	fmt.Fprintln(w)
	keys := ui.NewTable(w, noColor, "Key", "Type", "Options")
	for _, k := range m.Keys() {
		keys.AddRow(k.Name(), coerce.Describe(k.Type()), strings.Join(k.Flags(), ", "))
	}
	keys.Render()

	if assocs := m.Associations(); len(assocs) > 0 {
		fmt.Fprintln(w)
		table := ui.NewTable(w, noColor, "Association", "Kind", "Model")
		for _, a := range assocs {
			kind := "embeds many"
			if a.IsSingular() {
				kind = "embeds one"
			}
			table.AddRow(a.Name(), kind, a.Target().Name())
		}
		table.Render()
	}

	if rules := m.Rules().Rules(); len(rules) > 0 {
		fmt.Fprintln(w)
		table := ui.NewTable(w, noColor, "Rule")
		for _, r := range rules {
			table.AddRow(r.String())
		}
		table.Render()
	}
}

func dumpModel(w io.Writer, m *model.Model) {
	cfg := spew.ConfigState{
		Indent:                  "  ",
		DisablePointerAddresses: true,
		DisableCapacities:       true,
		SortKeys:                true,
		MaxDepth:                4,
	}

	options := make(map[string]interface{}, len(m.Keys()))
	for _, k := range m.Keys() {
		options[k.Name()] = k.Options()
	}
	cfg.Fdump(w, m.Name(), options, m.Rules().Rules())
}

func parentName(m *model.Model) string {
	if p := m.Parent(); p != nil {
		return p.Name()
	}
	return "-"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
