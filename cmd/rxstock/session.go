package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"rxstock/m/domain"
	"rxstock/m/internal/client"
	"rxstock/m/internal/collection"
	"rxstock/m/internal/gateway"
	"rxstock/m/internal/session"
)

// openSession seeds a session from the REST API.
func (a *app) openSession(ctx context.Context) (*session.Session, error) {
	mode, err := gateway.ParseMode(a.cfg.MutationMode)
	if err != nil {
		return nil, err
	}
	c := a.client()
	s, err := session.Open(ctx, session.Options{
		Backend: c,
		Source:  c,
		Mode:    mode,
		Logger:  &a.log,
	})
	if err != nil {
		return nil, err
	}
	a.log.Debug().Str("api", a.cfg.APIURL).Str("mode", s.Gateway.Mode().String()).Msg("session opened")
	return s, nil
}

func (a *app) client() *client.Client {
	return client.New(a.cfg.APIURL, a.log, client.WithTimeout(a.timeout))
}

// withSession runs fn against a fresh session and prints its notices.
func (a *app) withSession(cmd *cobra.Command, fn func(s *session.Session) error) error {
	s, err := a.openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	err = fn(s)
	for _, n := range s.Notices.List() {
		fmt.Fprintf(cmd.ErrOrStderr(), "[%s] %s\n", n.Level, n.Message)
	}
	return err
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

// listFlags registers the search, sort and filter flags of a list command.
func listFlags(cmd *cobra.Command, dimensions ...string) {
	cmd.Flags().String("search", "", "case-insensitive search term")
	cmd.Flags().String("sort", "", "sort key, prefix with - for descending")
	for _, dim := range dimensions {
		cmd.Flags().String(dim, collection.All, "filter by "+dim)
	}
}

func queryFromFlags(cmd *cobra.Command, dimensions ...string) collection.Query {
	q := collection.Query{}
	q.Search, _ = cmd.Flags().GetString("search")
	q.Sort, _ = cmd.Flags().GetString("sort")
	for _, dim := range dimensions {
		v, _ := cmd.Flags().GetString(dim)
		q = q.Where(dim, v)
	}
	return q
}

// promptConfirmer asks on in before a medicine is deleted unless yes is set.
func promptConfirmer(in io.Reader, out io.Writer, yes bool) gateway.Confirmer {
	return func(m domain.Medicine) bool {
		if yes {
			return true
		}
		fmt.Fprintf(out, "Delete %s (#%d)? [y/N] ", m.Name, m.ID)
		answer, _ := bufio.NewReader(in).ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		return answer == "y" || answer == "yes"
	}
}

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}
