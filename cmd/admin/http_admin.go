package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"proofline.ai/internal/protocol"
)

func baseURLFlag(fs *flag.FlagSet) *string {
	return fs.String("url", "http://127.0.0.1:8080", "server base url")
}

func endpoint(base, path string) string {
	return strings.TrimRight(strings.TrimSpace(base), "/") + path
}

// do sends req and prints the body. Non-2xx responses exit 1.
func do(req *http.Request, timeout time.Duration) {
	cl := &http.Client{Timeout: timeout}
	resp, err := cl.Do(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(strings.TrimSpace(string(b)))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}

func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	baseURL := baseURLFlag(fs)
	_ = fs.Parse(args)

	req, _ := http.NewRequest(http.MethodGet, endpoint(*baseURL, "/admin/v1/state"), nil)
	do(req, 5*time.Second)
}

func gridCmd(args []string) {
	fs := flag.NewFlagSet("grid", flag.ExitOnError)
	baseURL := baseURLFlag(fs)
	area := fs.String("area", "", "x,y,w,h (optional)")
	links := fs.Bool("links", false, "include output->input links")
	_ = fs.Parse(args)

	u := endpoint(*baseURL, "/admin/v1/grid") + "?area=" + strings.TrimSpace(*area)
	if *links {
		u += "&links=1"
	}
	req, _ := http.NewRequest(http.MethodGet, u, nil)
	do(req, 5*time.Second)
}

func commandCmd(args []string) {
	fs := flag.NewFlagSet("cmd", flag.ExitOnError)
	baseURL := baseURLFlag(fs)
	machineType := fs.String("type", "", "machine type (PLACE)")
	x := fs.Int("x", 0, "tile x")
	y := fs.Int("y", 0, "tile y")
	rot := fs.Int("rot", 0, "placement rotation, quarter turns or degrees (PLACE)")
	turns := fs.Int("turns", 1, "quarter turns clockwise (ROTATE)")
	letter := fs.String("letter", "", "generator letter (SET_LETTER)")
	actor := fs.String("actor", "ADMIN", "actor recorded in the audit log")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: admin cmd [flags] PLACE|REMOVE|ROTATE|SET_LETTER")
		os.Exit(2)
	}
	cmd := protocol.CommandMsg{
		Type:            protocol.TypeCommand,
		ProtocolVersion: protocol.Version,
		Op:              strings.ToUpper(fs.Arg(0)),
		MachineType:     *machineType,
		X:               *x,
		Y:               *y,
		Rotation:        *rot,
		Letter:          *letter,
		Actor:           *actor,
	}
	if cmd.Op == protocol.OpRotate {
		cmd.Turns = *turns
	}
	if err := cmd.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "bad command:", err)
		os.Exit(2)
	}
	body, _ := json.Marshal(cmd)
	req, _ := http.NewRequest(http.MethodPost, endpoint(*baseURL, "/admin/v1/commands"), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	do(req, 10*time.Second)
}

func snapshotCmd(args []string) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	baseURL := baseURLFlag(fs)
	_ = fs.Parse(args)

	req, _ := http.NewRequest(http.MethodPost, endpoint(*baseURL, "/admin/v1/snapshot"), nil)
	do(req, 10*time.Second)
}
