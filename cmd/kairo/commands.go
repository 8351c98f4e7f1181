package main

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"time"

	"github.com/Joseda-hg/kairo/internal/auth"
	"github.com/Joseda-hg/kairo/internal/model"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newLoginCmd(flags *globalFlags) *cobra.Command {
	var (
		token    string
		callback string
		timeout  time.Duration
		noOpen   bool
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in through the browser",
		Long: `Sign in to Kairo.

Without flags the login page opens in your browser and kairo waits for the
redirect on the local callback server. When the redirect cannot reach this
machine, paste the callback URL with --callback or the token with --token.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			a, err := openApp(ctx, flags)
			if err != nil {
				return err
			}
			defer a.close()

			switch {
			case token != "":
				if err := a.session.Set(ctx, token); err != nil {
					return err
				}
			case callback != "":
				if _, err := auth.Complete(ctx, a.session, callback); err != nil {
					return err
				}
			default:
				if err := waitForBrowserLogin(ctx, a, timeout, noOpen); err != nil {
					return err
				}
			}

			user, err := a.store.FetchCurrentUser(ctx)
			if err != nil {
				return fmt.Errorf("token stored but the backend rejected it: %w", err)
			}
			fmt.Println(successStyle.Render("Logged in as " + userLabel(user)))
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "store this token instead of opening the browser")
	cmd.Flags().StringVar(&callback, "callback", "", "complete login from a pasted callback URL")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "how long to wait for the browser")
	cmd.Flags().BoolVar(&noOpen, "no-open", false, "print the login URL instead of opening it")
	return cmd
}

// waitForBrowserLogin serves the callback route until a token arrives.
func waitForBrowserLogin(ctx context.Context, a *app, timeout time.Duration, noOpen bool) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	server := a.newWebServer()
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(ctx, fmt.Sprintf(":%d", a.cfg.WebPort))
	}()

	loginURL := a.client.LoginURL()
	if noOpen {
		fmt.Println("Open this URL to sign in:")
		fmt.Println(linkStyle.Render(loginURL))
	} else if err := openBrowser(loginURL); err != nil {
		a.logger.Warn("open browser", zap.Error(err))
		fmt.Println("Could not open a browser. Open this URL to sign in:")
		fmt.Println(linkStyle.Render(loginURL))
	} else {
		fmt.Println(dimStyle.Render("Waiting for the browser login to finish..."))
	}

	select {
	case <-server.Tokens():
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("callback server: %w", err)
		}
		return fmt.Errorf("callback server stopped before login finished")
	case <-ctx.Done():
		return fmt.Errorf("login timed out: %w", ctx.Err())
	}
}

func newLogoutCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.store.Logout(cmd.Context()); err != nil {
				fmt.Println(warningStyle.Render("Backend logout failed; the local token was removed anyway."))
			}
			fmt.Println(successStyle.Render("Logged out"))
			return nil
		},
	}
}

func newWhoamiCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer a.close()

			if err := auth.RequireToken(a.session); err != nil {
				return fmt.Errorf("%w: run kairo login", err)
			}
			user, err := a.store.FetchCurrentUser(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(renderField("User", userLabel(user)))
			if claims, ok := a.session.Describe(); ok && claims.ExpiresAt != nil {
				fmt.Println(renderField("Token expires", claims.ExpiresAt.Local().Format(time.RFC1123)))
			}
			fmt.Println(renderField("API", a.cfg.APIURL))
			return nil
		},
	}
}

func newSyncCmd(flags *globalFlags) *cobra.Command {
	var meetings bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Create tasks from new emails",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer a.close()

			if err := auth.RequireToken(a.session); err != nil {
				return fmt.Errorf("%w: run kairo login", err)
			}
			result, err := a.store.SyncEmails(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(successStyle.Render(fmt.Sprintf("Sync completed! %d new tasks created.", result.NewTasksCreated)))

			if meetings {
				synced, err := a.store.SyncMeetings(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Println(successStyle.Render(fmt.Sprintf("Synced %d new meetings!", synced.NewMeetings)))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&meetings, "meetings", false, "also sync calendar meetings")
	return cmd
}

func newMeetingsCmd(flags *globalFlags) *cobra.Command {
	filter := model.MeetingFilter{Page: 1, PerPage: 20}
	cmd := &cobra.Command{
		Use:   "meetings",
		Short: "List meetings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer a.close()

			if err := auth.RequireToken(a.session); err != nil {
				return fmt.Errorf("%w: run kairo login", err)
			}
			if err := a.store.FetchMeetings(cmd.Context(), filter); err != nil {
				return err
			}
			snap := a.store.MeetingsSnapshot()
			fmt.Print(renderMeetings(snap.Meetings, snap.Pagination))
			return nil
		},
	}
	cmd.Flags().StringVar(&filter.Status, "status", "", "pending, processing, completed or failed")
	cmd.Flags().IntVar(&filter.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&filter.PerPage, "per-page", 20, "meetings per page")
	return cmd
}

func newSummaryCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "summary <meeting-id>",
		Short: "Print a meeting summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer a.close()

			if err := auth.RequireToken(a.session); err != nil {
				return fmt.Errorf("%w: run kairo login", err)
			}
			id := model.ID(args[0])
			if err := a.store.FetchMeeting(cmd.Context(), id); err != nil {
				return err
			}
			if err := a.store.FetchSummary(cmd.Context(), id); err != nil {
				fmt.Println(warningStyle.Render("Summary Not Available"))
				return err
			}
			snap := a.store.MeetingsSnapshot()
			fmt.Print(renderSummary(snap.Current, snap.Summary))
			return nil
		},
	}
}

func newServeCmd(flags *globalFlags) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run only the web dashboard",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			a, err := openApp(ctx, flags)
			if err != nil {
				return err
			}
			defer a.close()

			if port == 0 {
				port = a.cfg.WebPort
			}
			addr := fmt.Sprintf(":%d", port)
			fmt.Println(successStyle.Render("Web dashboard running at ") + linkStyle.Render(fmt.Sprintf("http://localhost%s", addr)))
			return a.newWebServer().Start(ctx, addr)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "web server port")
	return cmd
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

func userLabel(user model.AuthUser) string {
	switch {
	case user.Name != "" && user.Email != "":
		return user.Name + " <" + user.Email + ">"
	case user.Name != "":
		return user.Name
	default:
		return user.Email
	}
}
