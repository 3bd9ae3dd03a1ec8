package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"preboard/internal/admitcard"
	"preboard/internal/blob"
	"preboard/internal/config"
	"preboard/internal/identity"
	"preboard/internal/schedule"
	"preboard/internal/store"
	"preboard/internal/student"
)

func openDB(ctx context.Context, cfg *config.App) (*store.DB, error) {
	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}

func newMigrateCmd(cfg *config.App) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDB(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := store.Migrate(cmd.Context(), db.Client); err != nil {
				return err
			}
			printf(cmd, "schema up to date\n")
			return nil
		},
	}
}

func newCreateAdminCmd(cfg *config.App) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account, or grant admin to an existing one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(password) < 8 {
				return errors.New("password must be at least 8 characters")
			}
			db, err := openDB(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			users := identity.NewStore(db.Client)
			u, err := users.FindUserByEmail(cmd.Context(), email)
			if err != nil {
				return fmt.Errorf("look up user: %w", err)
			}
			if u == nil {
				if u, err = users.CreateUser(cmd.Context(), email, password); err != nil {
					return fmt.Errorf("create user: %w", err)
				}
				printf(cmd, "created user %s (%s)\n", u.Email, u.ID)
			} else {
				printf(cmd, "user %s already exists, password unchanged\n", u.Email)
			}
			if err := users.GrantRole(cmd.Context(), u.ID, identity.AdminRole); err != nil {
				return fmt.Errorf("grant admin: %w", err)
			}
			printf(cmd, "%s is an admin\n", u.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "initial password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newRenderCmd(cfg *config.App) *cobra.Command {
	var (
		id, class, roll   string
		out, photo, sig   string
		crest             string
		skipStoredUploads bool
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render one student's admit card to a PDF file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if id == "" && (class == "" || roll == "") {
				return errors.New("pass --id, or both --class and --roll")
			}
			ctx := cmd.Context()
			db, err := openDB(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			students := student.NewService(student.NewRepository(db.Client), nil)
			var rec *student.Record
			if id != "" {
				rec, err = students.Get(ctx, id)
			} else {
				rec, err = students.LookupStudent(ctx, class, roll)
				if err == nil && rec == nil {
					err = student.ErrNotFound
				}
			}
			if err != nil {
				return err
			}

			img, err := renderImages(ctx, cfg, rec, photo, sig, !skipStoredUploads)
			if err != nil {
				return err
			}
			r, err := newRenderer(cfg, crest)
			if err != nil {
				return err
			}
			doc, err := r.Render(rec, img)
			if err != nil {
				return err
			}
			path := filepath.Join(out, doc.Filename)
			if err := os.WriteFile(path, doc.Data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			printf(cmd, "wrote %s (%d bytes)\n", path, len(doc.Data))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&id, "id", "", "student id")
	f.StringVar(&class, "class", "", "class label, used with --roll")
	f.StringVar(&roll, "roll", "", "roll number, used with --class")
	f.StringVarP(&out, "out", "o", ".", "output directory")
	f.StringVar(&photo, "photograph", "", "local photograph overriding the stored one")
	f.StringVar(&sig, "signature", "", "local signature overriding the stored one")
	f.StringVar(&crest, "crest", cfg.CrestFile, "school crest image")
	f.BoolVar(&skipStoredUploads, "no-fetch", false, "do not download stored uploads")
	return cmd
}

func newRenderer(cfg *config.App, crestPath string) (*admitcard.Renderer, error) {
	table, err := schedule.Load(cfg.ScheduleFile)
	if err != nil {
		return nil, err
	}
	var crest []byte
	if crestPath != "" {
		if crest, err = admitcard.LoadCrest(crestPath); err != nil {
			return nil, err
		}
	}
	return admitcard.New(table, crest), nil
}

// renderImages prefers local files, then the stored uploads of rec.
func renderImages(ctx context.Context, cfg *config.App, rec *student.Record, photoPath, sigPath string, fetch bool) (admitcard.Images, error) {
	var img admitcard.Images
	cdn := blob.New(cfg.CloudinaryName, cfg.CloudinaryKey, cfg.CloudinarySecret, cfg.CloudinaryFolder)
	load := func(path string, stored *string) ([]byte, error) {
		if path != "" {
			return os.ReadFile(path)
		}
		if !fetch || stored == nil || *stored == "" {
			return nil, nil
		}
		data, err := cdn.Fetch(ctx, *stored)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v, placeholder used\n", err)
			return nil, nil
		}
		return data, nil
	}
	var err error
	if img.Photograph, err = load(photoPath, rec.PhotographURL); err != nil {
		return img, err
	}
	if img.Signature, err = load(sigPath, rec.SignatureURL); err != nil {
		return img, err
	}
	return img, nil
}

func newScheduleCmd(cfg *config.App) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule [class]",
		Short: "List schedule keys, or print the sittings for one class label",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := schedule.Load(cfg.ScheduleFile)
			if err != nil {
				return err
			}
			if len(args) == 0 {
				keys := table.Keys()
				sort.Strings(keys)
				printf(cmd, "%s\n", strings.Join(keys, "\n"))
				return nil
			}
			entries, ok := table.Lookup(args[0])
			if !ok {
				return fmt.Errorf("no schedule for class %q (key %q)", args[0], schedule.NormalizeClassKey(args[0]))
			}
			printf(cmd, "%s\n", table.Timing())
			for _, e := range entries {
				printf(cmd, "%s  %-10s %s\n", e.Date.Format(schedule.DateLayout), e.Day, e.Subject)
			}
			return nil
		},
	}
}
