package process

import "os/exec"

// Starter starts a prepared command. The default calls (*exec.Cmd).Start;
// tests plug in their own to observe or fail process creation.
type Starter interface {
	Start(cmd *exec.Cmd) error
}

// StarterFunc adapts a function to Starter.
type StarterFunc func(cmd *exec.Cmd) error

func (f StarterFunc) Start(cmd *exec.Cmd) error {
	return f(cmd)
}

type execStarter struct{}

func (execStarter) Start(cmd *exec.Cmd) error {
	return cmd.Start()
}
