package validate

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"sunwell/internal/types"
)

// runGateSpecific implements cascade layer 4, dispatching on
// Gate.Kind.
func (v *Validator) runGateSpecific(ctx context.Context, gate types.Gate, artifacts []types.Artifact, paths []string) (string, *types.ValidationError) {
	switch gate.Kind {
	case types.GateImport, types.GateInstantiate:
		return v.checkImport(artifacts)
	case types.GateSchema:
		return v.runDeclaredCommand(ctx, gate, types.ErrType)
	case types.GateServe, types.GateEndpoint:
		return v.checkServe(ctx, gate)
	case types.GateIntegration, types.GateTest:
		return v.runDeclaredCommand(ctx, gate, types.ErrTest)
	default:
		return "", nil
	}
}

// checkImport loads each Go artifact's source in an isolated Yaegi
// interpreter. Non-Go artifacts are
// skipped — there is no in-process loader wired for other languages.
func (v *Validator) checkImport(artifacts []types.Artifact) (string, *types.ValidationError) {
	for _, a := range artifacts {
		if !strings.HasSuffix(a.Path, ".go") {
			continue
		}
		i := interp.New(interp.Options{})
		if err := i.Use(stdlib.Symbols); err != nil {
			return err.Error(), &types.ValidationError{
				Kind: types.ErrImport, File: a.Path, Message: err.Error(), Severity: types.SeverityError,
			}
		}
		if _, err := i.Eval(a.Content); err != nil {
			return err.Error(), &types.ValidationError{
				Kind: types.ErrImport, File: a.Path, Message: fmt.Sprintf("import/instantiate failed: %s", err), Severity: types.SeverityError,
			}
		}
	}
	return "", nil
}

func (v *Validator) runDeclaredCommand(ctx context.Context, gate types.Gate, kind types.ErrorKind) (string, *types.ValidationError) {
	d := gate.Validation
	if d.Command == "" {
		return "", nil
	}
	cmd := exec.CommandContext(ctx, d.Command, d.Args...)
	if len(d.Env) > 0 {
		cmd.Env = cmd.Environ()
		for k, val := range d.Env {
			cmd.Env = append(cmd.Env, k+"="+val)
		}
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return out.String(), &types.ValidationError{
			Kind:     kind,
			Message:  fmt.Sprintf("%s %v: %s", d.Command, d.Args, err),
			Severity: types.SeverityError,
		}
	}
	return out.String(), nil
}

// checkServe starts the gate's declared entry point bound to an OS-assigned
// ephemeral port, polls for readiness with exponential backoff, issues the declared probes, and tears the
// process down before returning.
func (v *Validator) checkServe(ctx context.Context, gate types.Gate) (string, *types.ValidationError) {
	d := gate.Validation
	if d.Command == "" {
		return "", nil
	}

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return err.Error(), &types.ValidationError{Kind: types.ErrRuntime, Message: err.Error(), Severity: types.SeverityError}
	}
	port := lis.Addr().(*net.TCPAddr).Port
	lis.Close()

	env := append([]string{}, "PORT="+strconv.Itoa(port))
	for k, val := range d.Env {
		env = append(env, k+"="+val)
	}

	cmd := exec.CommandContext(ctx, d.Command, d.Args...)
	cmd.Env = append(cmd.Environ(), env...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Start(); err != nil {
		return err.Error(), &types.ValidationError{Kind: types.ErrRuntime, Message: err.Error(), Severity: types.SeverityError}
	}
	defer func() {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		_ = cmd.Wait()
	}()

	if !v.awaitReady(ctx, port) {
		return out.String(), &types.ValidationError{Kind: types.ErrRuntime, Message: "readiness probe timed out", Severity: types.SeverityError}
	}

	for _, path := range d.ProbePaths {
		url := fmt.Sprintf("http://127.0.0.1:%d%s", port, path)
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return out.String(), &types.ValidationError{Kind: types.ErrRuntime, Message: err.Error(), Severity: types.SeverityError}
		}
		resp.Body.Close()
		if d.ExpectStatus != 0 && resp.StatusCode != d.ExpectStatus {
			return out.String(), &types.ValidationError{
				Kind:     types.ErrRuntime,
				Message:  fmt.Sprintf("probe %s: expected status %d, got %d", path, d.ExpectStatus, resp.StatusCode),
				Severity: types.SeverityError,
			}
		}
	}
	return out.String(), nil
}

func (v *Validator) awaitReady(ctx context.Context, port int) bool {
	min, max := v.ProbeBackoffMin, v.ProbeBackoffMax
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max <= 0 {
		max = time.Second
	}
	backoff := min
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	for {
		conn, err := net.DialTimeout("tcp", addr, backoff)
		if err == nil {
			conn.Close()
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > max {
			backoff = max
		}
	}
}
