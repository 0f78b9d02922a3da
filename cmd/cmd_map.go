// Copyright 2026 The FriendMap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/friendmap/friendmap/leaflet"
	"github.com/friendmap/friendmap/pipeline"
	"github.com/friendmap/friendmap/utils/textutils"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

type mapOptions struct {
	pipeline pipelineFlags

	Token  string
	Handle string
	Count  int
	Out    string
	Stdout bool
}

var mapOpts = &mapOptions{}

var errMissingToken = errors.New("a bearer token is required")

// barProgress shows geocoding progress on a terminal.
type barProgress struct {
	writer io.Writer
	bar    *progressbar.ProgressBar
}

func (p *barProgress) Start(total int) {
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Geocoding"),
		progressbar.OptionSetWriter(p.writer),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (p *barProgress) Advance() {
	_ = p.bar.Add(1)
}

func (p *barProgress) Finish() {
	_ = p.bar.Finish()
}

// readLine returns the next line of input without its line terminator.
func readLine(in *bufio.Reader) (string, error) {
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}

	return strings.TrimRight(line, "\r\n"), nil
}

// promptHandle asks for the account until a non-empty one is given.
func promptHandle(in *bufio.Reader, out io.Writer) (string, error) {
	for {
		fmt.Fprint(out, "Please enter user's @tag: @")

		line, err := readLine(in)
		if err != nil {
			return "", fmt.Errorf("reading account: %w", err)
		}

		if handle := strings.TrimPrefix(strings.TrimSpace(line), "@"); handle != "" {
			return handle, nil
		}
	}
}

// promptCount asks for the number of friends until a positive number is given.
func promptCount(in *bufio.Reader, out io.Writer) (int, error) {
	for {
		fmt.Fprint(out, "Please enter the number of friends: ")

		line, err := readLine(in)
		if err != nil {
			return 0, fmt.Errorf("reading number of friends: %w", err)
		}

		if n, err := strconv.Atoi(strings.TrimSpace(line)); err == nil && n > 0 {
			return n, nil
		}
	}
}

var mapCmd = &cobra.Command{
	Use:   "map [BEARER_TOKEN]",
	Short: "Builds the map of an account's friends",
	Long: `Fetches the friend list of an account, geocodes every friend that has a
location on their profile and writes an HTML map with one marker per friend.

The account and the number of friends are asked interactively unless given
with --handle and --count. Geocoding is paced to one request per --min-delay,
so a list of 200 friends takes a few minutes.

$ friendmap map $TOKEN --handle liverpooloneluv --count 20 --out friends.html
`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token := mapOpts.Token
		if len(args) > 0 {
			token = args[0]
		}

		token = firstNonEmpty(token, os.Getenv(envBearerToken))
		if token == "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Usage:\n  %s\n", cmd.UseLine())

			return errMissingToken
		}

		in := bufio.NewReader(cmd.InOrStdin())
		prompt := cmd.ErrOrStderr()

		handle := strings.TrimPrefix(strings.TrimSpace(mapOpts.Handle), "@")
		if handle == "" {
			var err error
			if handle, err = promptHandle(in, prompt); err != nil {
				return err
			}
		}

		count := mapOpts.Count
		if !cmd.Flags().Changed("count") {
			var err error
			if count, err = promptCount(in, prompt); err != nil {
				return err
			}
		}

		req := pipeline.Request{
			Credential: token,
			Handle:     handle,
			Count:      count,
			Mode:       leaflet.ModeWrite,
			Path:       mapOpts.Out,
		}

		if mapOpts.Stdout {
			req.Mode = leaflet.ModeRender
		}

		if isatty.IsTerminal(os.Stderr.Fd()) {
			req.Progress = &barProgress{writer: os.Stderr}
		}

		artifact, err := pipeline.New(mapOpts.pipeline.options(), logger).Run(cmd.Context(), req)
		if err != nil {
			return err
		}

		if mapOpts.Stdout {
			_, err := io.WriteString(cmd.OutOrStdout(), artifact.HTML)

			return err
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "Map with %s markers written to %s\n",
			textutils.FormatInt(int64(artifact.Markers)),
			artifact.Path)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(mapCmd)
	mapOpts.pipeline.register(mapCmd)
	mapCmd.Flags().StringVar(
		&mapOpts.Token,
		"token",
		"",
		fmt.Sprintf("Bearer token of the friend list API (env %s)", envBearerToken),
	)
	mapCmd.Flags().StringVar(
		&mapOpts.Handle,
		"handle",
		"",
		"Account whose friends are mapped; asked interactively when empty",
	)
	mapCmd.Flags().IntVar(
		&mapOpts.Count,
		"count",
		50,
		"Number of friends to fetch; asked interactively when not set",
	)
	mapCmd.Flags().StringVarP(
		&mapOpts.Out,
		"out",
		"o",
		leaflet.DefaultPath,
		"Path of the generated map, overwritten if it exists",
	)
	mapCmd.Flags().BoolVar(
		&mapOpts.Stdout,
		"stdout",
		false,
		"Print the map document instead of writing it to --out",
	)
}
