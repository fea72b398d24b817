// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"smeinsights/internal/cache"
	"smeinsights/internal/models"
	"smeinsights/internal/scheduler"
	"smeinsights/internal/session"
	"smeinsights/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and seed defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		fmt.Fprintln(cmd.OutOrStdout(), "database up to date")
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one generation batch now, honouring the daily cap",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := exitOnSignal(cmd.Context())
		defer stop()

		a, err := openApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		run, err := a.scheduler.RunBatch(ctx, models.TriggerCLI)
		if errors.Is(err, scheduler.ErrBatchRunning) {
			fmt.Fprintln(cmd.OutOrStdout(), "another batch is running, nothing to do")
			return nil
		}
		if err != nil {
			return err
		}
		printRun(cmd.OutOrStdout(), run)
		return nil
	},
}

func printRun(w io.Writer, run *models.GenerationRun) {
	if run == nil {
		fmt.Fprintln(w, "daily cap reached, nothing generated")
		return
	}
	fmt.Fprintf(w, "planned %d, generated %d, failed %d\n", run.Planned, run.Generated, run.Failed)
	if run.LastError != nil {
		fmt.Fprintf(w, "last error: %s\n", *run.LastError)
	}
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a single post immediately, ignoring the daily cap",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := exitOnSignal(cmd.Context())
		defer stop()

		a, err := openApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.scheduler.RunNow(ctx)
		if res != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", res.Status, res.Message)
			if res.ModelUsed != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "model: %s (fallback: %t)\n", res.ModelUsed, res.FallbackUsed)
			}
		}
		return err
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Inspect or change the recurring generation schedule",
}

func init() {
	scheduleCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := a.scheduler.Status()
			if err != nil {
				return err
			}
			today, err := a.counter.Count(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			printState(cmd.OutOrStdout(), st)
			fmt.Fprintf(cmd.OutOrStdout(), "generated today: %d\n", today)
			return nil
		},
	})
	scheduleCmd.AddCommand(&cobra.Command{
		Use:   "activate",
		Short: "Schedule the recurring batch from the interval setting",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := a.scheduler.Activate(cmd.Context())
			if err != nil {
				return err
			}
			printState(cmd.OutOrStdout(), st)
			return nil
		},
	})
	scheduleCmd.AddCommand(&cobra.Command{
		Use:   "deactivate",
		Short: "Clear the recurring batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.scheduler.Deactivate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schedule cleared")
			return nil
		},
	})
}

func printState(w io.Writer, st scheduler.State) {
	if !st.Active {
		fmt.Fprintln(w, "schedule: inactive")
		return
	}
	fmt.Fprintf(w, "schedule: active (%s)\n", st.Interval)
	if st.NextRun != nil {
		fmt.Fprintf(w, "next run: %s\n", st.NextRun.Format(time.RFC3339))
	}
	if st.LastRun != nil {
		fmt.Fprintf(w, "last run: %s\n", st.LastRun.Format(time.RFC3339))
	}
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Read and change generation settings",
}

func init() {
	settingsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all settings, credentials masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			all, err := store.NewSiteSettingStore(db).All()
			if err != nil {
				return err
			}
			printSettings(cmd.OutOrStdout(), all.Masked())
			return nil
		},
	})
	settingsCmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print one setting, credentials masked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			v, err := store.NewSiteSettingStore(db).Get(args[0], "")
			if err != nil {
				return err
			}
			if models.IsSecretSetting(args[0]) {
				v = models.MaskSecret(v)
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	})
	settingsCmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one editable setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], strings.TrimSpace(args[1])
			if models.IsMaskedSecret(key, value) {
				return fmt.Errorf("%s: refusing to store a masked value", key)
			}
			if err := models.ValidateSetting(key, value); err != nil {
				return err
			}

			// Interval changes move the pending run, which needs the scheduler.
			if key == models.SettingIntervalBatches {
				a, err := openApp(cfg)
				if err != nil {
					return err
				}
				defer a.Close()
				return saveSetting(cmd.Context(), cmd.OutOrStdout(), a.settings, a.scheduler, key, value)
			}

			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			return saveSetting(cmd.Context(), cmd.OutOrStdout(), store.NewSiteSettingStore(db), nil, key, value)
		},
	})
}

type settingWriter interface {
	Set(key, value string) error
}

type rescheduler interface {
	Reschedule(ctx context.Context) (scheduler.State, error)
}

// saveSetting stores one setting and, when the batch interval changed and
// sched is set, moves the pending run onto the new interval.
func saveSetting(ctx context.Context, w io.Writer, settings settingWriter, sched rescheduler, key, value string) error {
	if err := settings.Set(key, value); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s updated\n", key)

	if key != models.SettingIntervalBatches || sched == nil {
		return nil
	}
	st, err := sched.Reschedule(ctx)
	if err != nil {
		return fmt.Errorf("reschedule: %w", err)
	}
	printState(w, st)
	return nil
}

func printSettings(w io.Writer, s models.SiteSettings) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, k := range s.Keys() {
		fmt.Fprintf(tw, "%s\t%s\n", k, s[k])
	}
	tw.Flush()
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List post categories with their post counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		cats, err := store.NewCategoryStore(db).List()
		if err != nil {
			return err
		}
		printCategories(cmd.OutOrStdout(), cats)
		return nil
	},
}

func printCategories(w io.Writer, cats []models.Category) {
	if len(cats) == 0 {
		fmt.Fprintln(w, "no categories yet")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSLUG\tPOSTS")
	for _, c := range cats {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", c.Name, c.Slug, c.PostCount)
	}
	tw.Flush()
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage admin accounts",
}

func init() {
	usersCmd.AddCommand(&cobra.Command{
		Use:   "reset-2fa <email>",
		Short: "Clear a user's TOTP enrolment so they can enrol again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			valkey, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword, cfg.ValkeyDB)
			if err != nil {
				return fmt.Errorf("connect valkey: %w", err)
			}
			defer valkey.Close()

			return resetTwoFA(cmd.Context(), cmd.OutOrStdout(), store.NewUserStore(db), session.NewStore(valkey, false), args[0])
		},
	})
}

type totpResetter interface {
	FindByEmail(email string) (*models.User, error)
	ResetTOTP(id uuid.UUID) error
}

type sessionRevoker interface {
	RevokeUser(ctx context.Context, userID uuid.UUID) (int, error)
}

// resetTwoFA clears the TOTP enrolment and signs the user out, since live
// sessions already passed the old second factor.
func resetTwoFA(ctx context.Context, w io.Writer, users totpResetter, sessions sessionRevoker, email string) error {
	u, err := users.FindByEmail(email)
	if err != nil {
		return err
	}
	if u == nil {
		return fmt.Errorf("no user with email %q", email)
	}
	if err := users.ResetTOTP(u.ID); err != nil {
		return err
	}
	fmt.Fprintf(w, "2FA reset for %s\n", u.Email)

	n, err := sessions.RevokeUser(ctx, u.ID)
	if err != nil {
		return fmt.Errorf("sign out %s: %w", u.Email, err)
	}
	fmt.Fprintf(w, "%d active session(s) signed out\n", n)
	return nil
}
