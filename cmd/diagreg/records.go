package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/diagreg/diagreg/internal/app"
	"github.com/diagreg/diagreg/internal/domain/patient"
	"github.com/diagreg/diagreg/pkg/pagination"
)

func recordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "records",
		Aliases: []string{"r"},
		Short:   "Browse and edit patient records",
	}

	cmd.AddCommand(recordsListCmd())
	cmd.AddCommand(recordsShowCmd())
	cmd.AddCommand(recordsAddCmd())
	cmd.AddCommand(recordsEditCmd())
	cmd.AddCommand(recordsDeleteCmd())
	return cmd
}

func recordsListCmd() *cobra.Command {
	var (
		vf     viewFlags
		format string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List records with filters, search, sorting and pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, _, err := openSession(cmd)
			if err != nil {
				return err
			}
			if err := vf.apply(s); err != nil {
				return err
			}
			v := s.View()

			switch format {
			case "json":
				resp := pagination.NewResponse(v.Items, v.Total, v.State.Page, pagination.PageSize)
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			case "table":
				renderRecordTable(cmd.OutOrStdout(), v, terminalOptions(cmd.OutOrStdout()))
				return nil
			default:
				return fmt.Errorf("invalid format: %s (valid values: table, json)", format)
			}
		},
	}

	vf.register(cmd, true)
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")
	return cmd
}

func parseRecordID(arg string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(arg))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid record id %q", arg)
	}
	return id, nil
}

func findRecord(s *app.Session, arg string) (patient.Record, error) {
	id, err := parseRecordID(arg)
	if err != nil {
		return patient.Record{}, err
	}
	r, ok := s.Find(id)
	if !ok {
		return patient.Record{}, fmt.Errorf("%s: %w", id, patient.ErrNotFound)
	}
	return r, nil
}

func recordsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show every field of a record, grouped by section",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := openSession(cmd)
			if err != nil {
				return err
			}
			r, err := findRecord(s, args[0])
			if err != nil {
				return err
			}
			renderDetail(cmd.OutOrStdout(), r, terminalOptions(cmd.OutOrStdout()))
			return nil
		},
	}
}

// flagName maps a field key such as "event_date" to its flag "event-date".
func flagName(f patient.Field) string {
	return strings.ReplaceAll(f.Key, "_", "-")
}

// addFieldFlags registers one string flag per editable field.
func addFieldFlags(cmd *cobra.Command) {
	for _, f := range patient.Fields {
		if !f.Editable() {
			continue
		}
		usage := fmt.Sprintf("%s (%s)", f.Label, f.Section)
		switch f.Key {
		case "sex":
			usage += fmt.Sprintf(" [%s|%s|%s]", patient.SexMale, patient.SexFemale, patient.SexOther)
		case "biopsy":
			usage += fmt.Sprintf(" [%s|%s]", patient.BiopsyYes, patient.BiopsyNo)
		}
		cmd.Flags().String(flagName(f), "", usage)
	}
}

// applyFieldFlags copies every field flag the user set onto n. Values that
// cannot be parsed are reported as a validation error on that field.
func applyFieldFlags(flags *pflag.FlagSet, n *patient.NewRecord) error {
	invalid := map[string]string{}
	for _, f := range patient.Fields {
		if !f.Editable() || !flags.Changed(flagName(f)) {
			continue
		}
		v, _ := flags.GetString(flagName(f))
		if err := f.Set(n, v); err != nil {
			invalid[f.Key] = fmt.Sprintf("valor no válido: %q", v)
		}
	}
	if len(invalid) > 0 {
		return &patient.ValidationError{Fields: invalid}
	}
	return nil
}

// printValidation lists the field messages of a validation error, by label.
func printValidation(w io.Writer, err error) {
	var verr *patient.ValidationError
	if !errors.As(err, &verr) {
		return
	}
	keys := make([]string, 0, len(verr.Fields))
	for k := range verr.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		label := k
		if f, ok := patient.FieldByKey(k); ok {
			label = f.Label
		}
		fmt.Fprintf(w, "  %s: %s\n", label, verr.Fields[k])
	}
}

func recordsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a record",
		Long:  "Add a record. The date defaults to today, sex to Masculino and biopsy to No.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n := patient.Draft(time.Now())
			if err := applyFieldFlags(cmd.Flags(), &n); err != nil {
				printValidation(cmd.ErrOrStderr(), err)
				return err
			}
			if err := patient.Validate(n); err != nil {
				printValidation(cmd.ErrOrStderr(), err)
				return err
			}

			s, cfg, err := openSession(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd.Context(), cfg)
			defer cancel()

			created, err := s.Add(ctx, n)
			printNotifications(cmd.ErrOrStderr(), s)
			if err != nil {
				printValidation(cmd.ErrOrStderr(), err)
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), created.ID)
			return nil
		},
	}
	addFieldFlags(cmd)
	return cmd
}

func recordsEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a record",
		Long:  "Change fields of a record. Only the flags given are changed; the identifier never changes.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cfg, err := openSession(cmd)
			if err != nil {
				return err
			}
			r, err := findRecord(s, args[0])
			if err != nil {
				return err
			}
			if err := applyFieldFlags(cmd.Flags(), &r.NewRecord); err != nil {
				printValidation(cmd.ErrOrStderr(), err)
				return err
			}

			ctx, cancel := withTimeout(cmd.Context(), cfg)
			defer cancel()

			updated, err := s.Edit(ctx, r)
			printNotifications(cmd.ErrOrStderr(), s)
			if err != nil {
				printValidation(cmd.ErrOrStderr(), err)
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), updated.ID)
			return nil
		},
	}
	addFieldFlags(cmd)
	return cmd
}

// confirm asks a yes/no question on out and reads the answer from in. Only
// an explicit yes confirms.
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s (s/N) ", question)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "s", "si", "sí", "y", "yes":
		return true, nil
	}
	return false, nil
}

func recordsDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cfg, err := openSession(cmd)
			if err != nil {
				return err
			}
			r, err := findRecord(s, args[0])
			if err != nil {
				return err
			}

			// Confirmation prompt
			if !force {
				ok, err := confirm(cmd.InOrStdin(), cmd.ErrOrStderr(),
					fmt.Sprintf("¿Eliminar el registro de %s del %s?", r.Name, r.EventDate))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Eliminación cancelada")
					return nil
				}
			}

			ctx, cancel := withTimeout(cmd.Context(), cfg)
			defer cancel()

			err = s.Remove(ctx, r.ID)
			printNotifications(cmd.ErrOrStderr(), s)
			return err
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip confirmation prompt")
	return cmd
}
