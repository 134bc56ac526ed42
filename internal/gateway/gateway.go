// Package gateway turns indexing and answering outcomes into the plain status
// strings shown to users.
package gateway

import (
	"context"
	"errors"
	"os"
	"strings"

	"webqa/internal/domain"
	apperrors "webqa/internal/errors"
	"webqa/internal/service"
	"webqa/internal/session"
)

const (
	MsgEnterURLList = "please enter url list"
	MsgLoadSuccess  = "success to load data"
	MsgLoadFailed   = "fail to load data"
	MsgLoadFirst    = "please load the data first"
	MsgNoAnswer     = "fail to get answer"
	MsgAnswerFailed = "fail to generate answer"
)

// Backend is the indexing and answering service.
type Backend interface {
	Index(ctx context.Context, req domain.IndexRequest) (service.IndexReport, error)
	Answer(ctx context.Context, question string) (domain.Answer, error)
	Status() (session.Info, bool)
}

// Credentials are used when a request leaves a field blank.
type Credentials struct {
	APIKey   string
	URI      string
	User     string
	Password string
}

// CredentialsFromEnv reads OPENAI_API_KEY and the ZILLIZ_* variables.
func CredentialsFromEnv() Credentials {
	return Credentials{
		APIKey:   os.Getenv("OPENAI_API_KEY"),
		URI:      os.Getenv("ZILLIZ_URI"),
		User:     os.Getenv("ZILLIZ_USER"),
		Password: os.Getenv("ZILLIZ_PASSWORD"),
	}
}

type Options struct {
	Defaults    Credentials
	Secure      bool
	ShowSources bool
}

type Gateway struct {
	backend Backend
	opts    Options
}

func New(backend Backend, opts Options) *Gateway {
	return &Gateway{backend: backend, opts: opts}
}

// WebLoad indexes the whitespace separated urlList and returns the load status.
func (g *Gateway) WebLoad(ctx context.Context, urlList, openaiKey, zillizURI, user, password string) string {
	urls := domain.ParseURLList(urlList)
	if len(urls) == 0 {
		return MsgEnterURLList
	}
	req := domain.IndexRequest{
		URLs:   urls,
		APIKey: strings.TrimSpace(orDefault(openaiKey, g.opts.Defaults.APIKey)),
		Connection: domain.Connection{
			URI:      strings.TrimSpace(orDefault(zillizURI, g.opts.Defaults.URI)),
			User:     orDefault(user, g.opts.Defaults.User),
			Password: orDefault(password, g.opts.Defaults.Password),
			Secure:   g.opts.Secure,
		},
	}
	if _, err := g.backend.Index(ctx, req); err != nil {
		if errors.Is(err, apperrors.ErrEmptyURLList) {
			return MsgEnterURLList
		}
		return MsgLoadFailed + ": " + apperrors.Reason(err)
	}
	return MsgLoadSuccess
}

// GenerateAnswer answers question against the last loaded pages.
func (g *Gateway) GenerateAnswer(ctx context.Context, question string) string {
	ans, err := g.backend.Answer(ctx, question)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrNotIndexed):
		return MsgLoadFirst
	case errors.Is(err, apperrors.ErrNoAnswer):
		return MsgNoAnswer
	default:
		return MsgAnswerFailed + ": " + apperrors.Reason(err)
	}
	if g.opts.ShowSources && len(ans.Sources) > 0 {
		return ans.Text + "\nSOURCES: " + strings.Join(ans.Sources, ", ")
	}
	return ans.Text
}

// Status returns the active index, if any.
func (g *Gateway) Status() (session.Info, bool) {
	return g.backend.Status()
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
