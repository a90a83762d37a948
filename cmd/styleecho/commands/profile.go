package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/easeaico/style-echo/internal/style"
	"github.com/easeaico/style-echo/internal/types"
)

type profileFlags struct {
	name        string
	description string
	sample      string
	sampleFile  string
	strength    float64
	extras      map[string]string
}

func (f *profileFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "Profile name")
	cmd.Flags().StringVar(&f.description, "description", "", "Short description of the style")
	cmd.Flags().StringVar(&f.sample, "sample", "", "Writing sample text")
	cmd.Flags().StringVar(&f.sampleFile, "sample-file", "", "Read the writing sample from a file")
	cmd.Flags().Float64Var(&f.strength, "strength", style.DefaultStrength, "Default rewrite strength between 0 and 1")
	cmd.Flags().StringToStringVar(&f.extras, "extra", nil, "Extra key=value metadata (repeatable)")
}

func (f *profileFlags) input(cmd *cobra.Command) (style.ProfileInput, error) {
	in := style.ProfileInput{Name: f.name, Description: f.description, SampleText: f.sample}
	if f.sampleFile != "" {
		text, err := readText(cmd, nil, f.sampleFile)
		if err != nil {
			return in, err
		}
		in.SampleText = text
	}
	if cmd.Flags().Changed("strength") {
		strength := f.strength
		in.Strength = &strength
	}
	if len(f.extras) > 0 {
		in.Extras = make(map[string]any, len(f.extras))
		for k, v := range f.extras {
			in.Extras[k] = v
		}
	}
	return in, nil
}

// NewProfileCmd groups the style profile subcommands.
func NewProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage style profiles",
	}
	cmd.AddCommand(newProfileAddCmd(), newProfileListCmd(), newProfileShowCmd(), newProfileUpdateCmd(), newProfileDeleteCmd())
	return cmd
}

func newProfileAddCmd() *cobra.Command {
	var flags profileFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a style profile from a writing sample",
		Long: `Create a style profile. The sample is embedded so the profile can be
ranked against later input. Without a sample, the name and description
are embedded instead.

Examples:
  styleecho profile add --name noir --sample-file noir.txt --strength 0.7
  styleecho profile add --name plain --description "short plain sentences"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := flags.input(cmd)
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), needs{db: true, providers: true})
			if err != nil {
				return err
			}
			defer a.Close()

			profile, err := a.service.CreateProfile(cmd.Context(), a.owner, in)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return printJSON(cmd.OutOrStdout(), profile)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created profile %s (%s)\n", profile.ID, profile.Name)
			return nil
		},
	}
	flags.register(cmd)
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newProfileListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List style profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), needs{db: true})
			if err != nil {
				return err
			}
			defer a.Close()

			profiles, err := a.service.ListProfiles(cmd.Context(), a.owner)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return printJSON(cmd.OutOrStdout(), profiles)
			}
			if len(profiles) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No style profiles yet")
				return nil
			}
			w := newTable(cmd.OutOrStdout())
			fmt.Fprintf(w, "ID\tNAME\tSTRENGTH\tEMBEDDED\tCREATED\tDESCRIPTION\n")
			for _, p := range profiles {
				fmt.Fprintf(w, "%s\t%s\t%.2f\t%t\t%s\t%s\n",
					p.ID, preview(p.Name, 24), p.Strength, p.HasEmbedding(), formatTime(p.CreatedAt), preview(p.Description, 50))
			}
			return w.Flush()
		},
	}
}

func newProfileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one style profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), needs{db: true})
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.service.GetProfile(cmd.Context(), a.owner, args[0])
			if err != nil {
				return err
			}
			if jsonOutput() {
				return printJSON(cmd.OutOrStdout(), p)
			}
			printProfile(cmd, p)
			return nil
		},
	}
}

func printProfile(cmd *cobra.Command, p *types.StyleProfile) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:          %s\n", p.ID)
	fmt.Fprintf(out, "Name:        %s\n", p.Name)
	fmt.Fprintf(out, "Description: %s\n", p.Description)
	fmt.Fprintf(out, "Strength:    %.2f\n", p.Strength)
	fmt.Fprintf(out, "Embedded:    %t (%d dims)\n", p.HasEmbedding(), len(p.Embedding))
	fmt.Fprintf(out, "Updated:     %s\n", formatTime(p.UpdatedAt))
	for k, v := range p.Extras {
		fmt.Fprintf(out, "Extra:       %s=%v\n", k, v)
	}
	fmt.Fprintf(out, "\n%s\n", p.SampleText)
}

func newProfileUpdateCmd() *cobra.Command {
	var flags profileFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a style profile",
		Long: `Update the given fields of a profile. The profile is re-embedded only
when its sample changes.

Examples:
  styleecho profile update <id> --strength 0.4
  styleecho profile update <id> --sample-file revised.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := flags.input(cmd)
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), needs{db: true, providers: true})
			if err != nil {
				return err
			}
			defer a.Close()

			profile, err := a.service.UpdateProfile(cmd.Context(), a.owner, args[0], in)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return printJSON(cmd.OutOrStdout(), profile)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated profile %s\n", profile.ID)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newProfileDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a style profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), needs{db: true})
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.service.DeleteProfile(cmd.Context(), a.owner, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted profile %s\n", args[0])
			return nil
		},
	}
}
