/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package main

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"drmeter/pkg/spec"
)

type interviewAnswers struct {
	path    string
	workers int
}

// runInterview asks for the missing arguments.
func runInterview(stdin io.Reader, stdout io.Writer, workers int) (interviewAnswers, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt: ">> ",
		Stdin:  io.NopCloser(stdin),
		Stdout: stdout,
	})
	if err != nil {
		return interviewAnswers{}, err
	}
	defer rl.Close()

	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	fmt.Fprintf(stdout, "\n%s version %s\n", spec.AppName, spec.Version())
	path := ask(rl, "1. File or directory", ".")
	if _, err := os.Stat(path); err != nil {
		return interviewAnswers{}, fmt.Errorf("file or directory %q does not exist", path)
	}
	w, err := strconv.Atoi(ask(rl, "2. Worker threads", strconv.Itoa(workers)))
	if err != nil || w <= 0 {
		w = workers
	}
	fmt.Fprintln(stdout)
	return interviewAnswers{path: path, workers: w}, nil
}

func ask(rl *readline.Instance, prompt, def string) string {
	rl.SetPrompt(fmt.Sprintf("%s [%s]: ", prompt, def))
	line, _ := rl.Readline()
	line = strings.TrimSpace(line)
	if line == "" {
		return def
	}
	return line
}
