package main

import (
	"fmt"
	"os"

	"voxelscan.ai/internal/hostworld"
)

// worldFlags are shared by the commands that build a host world.
type worldFlags struct {
	seed    int64
	fixture string
	remote  bool
}

func (f *worldFlags) open() (*hostworld.World, error) {
	if f.fixture == "" {
		return hostworld.New(hostworld.DefaultGen(f.seed), !f.remote), nil
	}
	in, err := os.Open(f.fixture)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	w, err := hostworld.ReadFixture(in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.fixture, err)
	}
	// The fixture header records the tier it was captured with; --remote wins.
	if f.remote {
		w.MarkRemote()
	}
	return w, nil
}
