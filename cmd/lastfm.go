package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/llehouerou/ripple/internal/config"
	"github.com/llehouerou/ripple/internal/errmsg"
	"github.com/llehouerou/ripple/internal/lastfm"
)

const loginTimeout = 5 * time.Minute

var lastfmCmd = &cobra.Command{
	Use:   "lastfm",
	Short: "Last.fm integration",
}

var lastfmLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authorize ripple to scrobble to your Last.fm account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if !cfg.HasLastfmConfig() {
			return errors.New("set [lastfm] api_key and api_secret first")
		}
		out := cmd.OutOrStdout()
		client := lastfm.New(cfg.Lastfm.APIKey, cfg.Lastfm.APISecret)

		token, err := client.GetToken()
		if err != nil {
			return errors.New(errmsg.Format(errmsg.OpLastfmAuth, err))
		}
		server, err := lastfm.StartAuthServer(lastfm.DefaultAuthAddr)
		if err != nil {
			return errors.New(errmsg.Format(errmsg.OpLastfmAuth, err))
		}
		defer server.Shutdown()

		authURL := client.GetAuthURL(token, server.CallbackURL())
		if err := lastfm.OpenBrowser(authURL); err != nil {
			fmt.Fprintln(out, "Open this URL to authorize ripple:")
		} else {
			fmt.Fprintln(out, "Waiting for authorization in your browser:")
		}
		fmt.Fprintln(out, authURL)

		ctx, cancel := context.WithTimeout(cmd.Context(), loginTimeout)
		defer cancel()
		select {
		case got := <-server.TokenChan():
			if got == "" {
				return errors.New(errmsg.Format(errmsg.OpLastfmAuth, errors.New("no token received")))
			}
			token = got
		case <-ctx.Done():
			return errors.New(errmsg.Format(errmsg.OpLastfmAuth, ctx.Err()))
		}

		username, sessionKey, err := client.GetSession(token)
		if err != nil {
			return errors.New(errmsg.Format(errmsg.OpLastfmAuth, err))
		}
		path := config.UserConfigPath()
		if err := config.SaveLastfmSession(path, sessionKey); err != nil {
			return err
		}
		fmt.Fprintf(out, "logged in as %s, session saved to %s\n", username, path)
		return nil
	},
}

func init() {
	lastfmCmd.AddCommand(lastfmLoginCmd)
	rootCmd.AddCommand(lastfmCmd)
}
