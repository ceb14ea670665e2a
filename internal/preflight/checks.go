package preflight

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

const serviceCheckTimeout = 5 * time.Second

// Requirement defines an external binary mangadrop shells out to.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// CheckBinaries evaluates the provided requirements against PATH.
func CheckBinaries(requirements []Requirement) []Result {
	results := make([]Result, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		result := Result{Name: req.Name, Optional: req.Optional}
		switch {
		case cmd == "":
			result.Detail = "command not configured"
		default:
			path, err := exec.LookPath(cmd)
			if err != nil {
				result.Detail = fmt.Sprintf("binary %q not found (%s)", cmd, strings.ToLower(req.Description))
			} else {
				result.Passed = true
				result.Detail = path
			}
		}
		results = append(results, result)
	}
	return results
}

// CheckMangaDex pings the API at baseURL. MangaDex answers GET /ping with
// the body "pong".
func CheckMangaDex(ctx context.Context, client HTTPDoer, baseURL, userAgent string) Result {
	const name = "MangaDex API"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing base url"}
	}
	if client == nil {
		client = &http.Client{Timeout: serviceCheckTimeout}
	}

	checkCtx, cancel := context.WithTimeout(ctx, serviceCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/ping", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("ping failed (%v)", err)}
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetError(err)}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64))
	if resp.StatusCode != http.StatusOK {
		return Result{Name: name, Detail: fmt.Sprintf("ping failed (%d)", resp.StatusCode)}
	}
	if strings.TrimSpace(string(body)) != "pong" {
		return Result{Name: name, Detail: "unexpected ping response"}
	}
	return Result{Name: name, Passed: true, Detail: base}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

func summarizeNetError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "ping timed out (API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "ping timed out (API unreachable)"
	}
	return err.Error()
}
