package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	"bleurgh/pkg/config"
	"bleurgh/pkg/utils"
)

const (
	historyFile = ".bleurgh_history"
	promptMain  = "bleurgh> "
	promptCont  = "......> "
)

func main() {
	configPath := flag.String("config", "", "config file")
	logLevel := flag.String("log-level", "", "log level: trace, debug, info, warn, error, none")
	preload := flag.String("load", "", "source file to parse before the prompt opens")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	logWriter, closeLog := config.OpenLogWriter(cfg.Log.File)
	defer closeLog()

	s := newSession(os.Stdout, config.NewLogger(logWriter, cfg.Log), cfg.Run.MaxSteps)

	if *preload != "" {
		fullPath, src, err := utils.ReadSource(*preload)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println("Loading", fullPath)
		if err := s.eval(src); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}

	os.Exit(repl(s))
}

func repl(s *session) int {
	fmt.Println("bleurgh console. Type :help for commands, :quit to exit.")

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	for {
		code, ok := readByParseProbe(ln, promptMain, promptCont)
		if !ok {
			fmt.Println()
			break
		}

		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, ":") {
			if s.command(trimmed) {
				return 0
			}
			continue
		}

		if err := s.eval(code); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
	}
	return 0
}

// readByParseProbe reads lines until they form something that is not an
// incomplete parse.
func readByParseProbe(ln *liner.State, prompt, cont string) (string, bool) {
	var b strings.Builder

	for {
		var line string
		var err error
		if b.Len() == 0 {
			line, err = ln.Prompt(prompt)
		} else {
			line, err = ln.Prompt(cont)
		}
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if err != nil {
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") || !incomplete(src) {
			return src, true
		}
	}
}
