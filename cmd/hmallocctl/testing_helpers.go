package main

import (
	"bytes"
	"os"
	"testing"

	"github.com/joshuapare/hmalloc/internal/workload"
)

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	origStdout := os.Stdout

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	// Drain concurrently so large outputs cannot fill the pipe.
	var buf bytes.Buffer
	drained := make(chan error, 1)
	go func() {
		_, err := buf.ReadFrom(r)
		drained <- err
	}()

	fnErr := fn()

	w.Close()
	os.Stdout = origStdout
	if err := <-drained; err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	return buf.String(), fnErr
}

// resetFlags restores global flag state between tests
func resetFlags(t *testing.T) {
	t.Helper()
	verbose, quiet, jsonOut, noColor, logLevel = false, false, false, true, ""
	classesSlabPages = 1

	def := workload.DefaultOptions()
	stressFlags.arch = string(def.Architecture)
	stressFlags.workers = 2
	stressFlags.ops = 2000
	stressFlags.maxSize = def.MaxSize
	stressFlags.maxLive = 64
	stressFlags.largeEvery = 50
	stressFlags.seed = 9
	stressFlags.slabPages = 1
	stressFlags.growPages = 1
	stressFlags.hardened = true
	stressFlags.validate = false
	stressFlags.listen = ""
}
