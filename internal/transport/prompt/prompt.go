// Package prompt asks for a query specification one field at a time.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/chzyer/readline"

	"github.com/whhaicheng/PenguinBM/internal/domain/query"
)

// ErrAborted is returned when the user interrupts or closes input.
var ErrAborted = errors.New("prompt aborted")

// LineReader is the subset of *readline.Instance the prompt needs.
type LineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

// NewReadline returns a readline instance with history kept in historyFile.
func NewReadline(historyFile string) (*readline.Instance, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize readline: %w", err)
	}
	return rl, nil
}

// Defaults pre-fill the database and channel questions.
type Defaults struct {
	Database string
	Tables   query.Tables
}

// Answers is the outcome of one prompt session.
type Answers struct {
	Database string
	Tables   query.Tables
	Spec     query.Spec
}

// Prompter runs the question flow.
type Prompter struct {
	in  LineReader
	out io.Writer
}

// New creates a prompter reading from in and reporting problems to out.
func New(in LineReader, out io.Writer) *Prompter {
	return &Prompter{in: in, out: out}
}

var channelPattern = regexp.MustCompile(`(?i)^\d{2}[vh]$`)

// Ask walks through database, channel, mode and the fields the mode needs.
// An invalid answer repeats the same question.
func (p *Prompter) Ask(ctx context.Context, d Defaults) (Answers, error) {
	a := Answers{Database: d.Database, Tables: d.Tables}
	s := &a.Spec

	err := p.ask(ctx, withDefault("Which database?", d.Database), func(in string) error {
		if in != "" {
			a.Database = in
		}
		if a.Database == "" {
			return fmt.Errorf("a database name is required")
		}
		return nil
	})
	if err != nil {
		return Answers{}, err
	}

	err = p.ask(ctx, withDefault("Which channel? i.e. 19v, 37h", d.Tables.Observation), func(in string) error {
		if in == "" {
			return query.ValidateIdentifier("channel", a.Tables.Observation)
		}
		if channelPattern.MatchString(in) {
			in = "CH" + strings.ToUpper(in)
		}
		if err := query.ValidateIdentifier("channel", in); err != nil {
			return err
		}
		a.Tables.Observation = in
		return nil
	})
	if err != nil {
		return Answers{}, err
	}

	err = p.ask(ctx, "Evaluate by temporal-1/spatial-2/combo-3", func(in string) (err error) {
		s.Mode, err = query.ParseMode(in)
		return err
	})
	if err != nil {
		return Answers{}, err
	}

	if s.Mode != query.ModeSpatial {
		if err := p.askTemporal(ctx, s); err != nil {
			return Answers{}, err
		}
	}
	if s.Mode != query.ModeTemporal {
		if err := p.askSpatial(ctx, s); err != nil {
			return Answers{}, err
		}
	}

	err = p.ask(ctx, "BT value range v1,v2", func(in string) error {
		v, err := query.ParseValueRange(in)
		if err != nil {
			return err
		}
		s.Values = &v
		return nil
	})
	if err != nil {
		return Answers{}, err
	}

	if err := s.Validate(); err != nil {
		return Answers{}, err
	}
	return a, nil
}

func (p *Prompter) askTemporal(ctx context.Context, s *query.Spec) error {
	err := p.ask(ctx, "Continuous time range: con or dis", func(in string) (err error) {
		s.Continuity, err = query.ParseContinuity(in)
		return err
	})
	if err != nil {
		return err
	}

	if s.Continuity == query.Continuous {
		var start string
		err = p.ask(ctx, "Temporal range start yyyy-mm-dd", func(in string) error {
			_, err := query.ParseDate("date_start", in)
			start = in
			return err
		})
		if err != nil {
			return err
		}
		err = p.ask(ctx, "Temporal range end yyyy-mm-dd", func(in string) error {
			span, err := query.NewDateSpan(start, in)
			if err != nil {
				return err
			}
			if span.End.Before(span.Start) {
				return fmt.Errorf("end %s is before start %s", in, start)
			}
			s.Dates = &span
			return nil
		})
	} else {
		err = p.ask(ctx, "Selected years, space separated: 2002 2003", func(in string) (err error) {
			s.Years, err = query.ParseYears(in)
			return err
		})
	}
	if err != nil {
		return err
	}

	return p.ask(ctx, "Which months: all, 01, 02, ...", func(in string) (err error) {
		s.Month, err = query.ParseMonth(in)
		return err
	})
}

func (p *Prompter) askSpatial(ctx context.Context, s *query.Spec) error {
	err := p.ask(ctx, "Row range r1 r2", func(in string) error {
		r, err := query.ParseRange("row_range", in)
		if err != nil {
			return err
		}
		s.Rows = &r
		return nil
	})
	if err != nil {
		return err
	}
	return p.ask(ctx, "Column range c1 c2", func(in string) error {
		r, err := query.ParseRange("col_range", in)
		if err != nil {
			return err
		}
		s.Cols = &r
		return nil
	})
}

// ask repeats question until accept returns nil.
func (p *Prompter) ask(ctx context.Context, question string, accept func(string) error) error {
	p.in.SetPrompt(question + " --> ")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := p.in.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				return ErrAborted
			}
			return fmt.Errorf("readline error: %w", err)
		}
		if err := accept(strings.TrimSpace(line)); err != nil {
			fmt.Fprintf(p.out, "Invalid input: %v\n", err)
			continue
		}
		return nil
	}
}

func withDefault(question, def string) string {
	if def == "" {
		return question
	}
	return fmt.Sprintf("%s [%s]", question, def)
}
