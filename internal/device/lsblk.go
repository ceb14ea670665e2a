package device

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// BlockDevice is one row of lsblk output.
type BlockDevice struct {
	Name       string
	Label      string
	MountPoint string
}

// Enumerator lists block devices visible to the host.
type Enumerator interface {
	List(ctx context.Context) ([]BlockDevice, error)
}

// Executor runs an external command and returns its stdout.
type Executor interface {
	Output(ctx context.Context, binary string, args ...string) ([]byte, error)
}

type commandExecutor struct{}

func (commandExecutor) Output(ctx context.Context, binary string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, binary, args...).Output()
}

// LSBLK enumerates block devices with `lsblk -P -b -o NAME,LABEL,MOUNTPOINT`.
type LSBLK struct {
	Binary string
	exec   Executor
}

// NewLSBLK returns an enumerator using the lsblk binary on PATH.
func NewLSBLK(executor Executor) *LSBLK {
	if executor == nil {
		executor = commandExecutor{}
	}
	return &LSBLK{Binary: "lsblk", exec: executor}
}

// List runs lsblk and parses its key="value" output.
func (l *LSBLK) List(ctx context.Context) ([]BlockDevice, error) {
	output, err := l.exec.Output(ctx, l.Binary, "-P", "-b", "-o", "NAME,LABEL,MOUNTPOINT")
	if err != nil {
		return nil, fmt.Errorf("run lsblk: %w", err)
	}
	return ParseLSBLK(string(output)), nil
}

// ParseLSBLK parses lsblk -P output into block devices.
func ParseLSBLK(output string) []BlockDevice {
	var devices []BlockDevice
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		data := parseLSBLKKeyValueLine(line)
		if len(data) == 0 {
			continue
		}
		devices = append(devices, BlockDevice{
			Name:       data["NAME"],
			Label:      data["LABEL"],
			MountPoint: data["MOUNTPOINT"],
		})
	}
	return devices
}

// parseLSBLKKeyValueLine splits KEY="value" pairs. Values may contain spaces
// and lsblk's \xNN escapes.
func parseLSBLKKeyValueLine(line string) map[string]string {
	result := make(map[string]string)
	for len(line) > 0 {
		line = strings.TrimLeft(line, " \t")
		eq := strings.IndexByte(line, '=')
		if eq <= 0 {
			break
		}
		key := line[:eq]
		rest := line[eq+1:]
		var value string
		if strings.HasPrefix(rest, `"`) {
			end := strings.IndexByte(rest[1:], '"')
			if end < 0 {
				value, line = rest[1:], ""
			} else {
				value, line = rest[1:end+1], rest[end+2:]
			}
		} else {
			end := strings.IndexAny(rest, " \t")
			if end < 0 {
				value, line = rest, ""
			} else {
				value, line = rest[:end], rest[end:]
			}
		}
		result[strings.TrimSpace(key)] = unescapeLSBLK(value)
	}
	return result
}

func unescapeLSBLK(value string) string {
	if !strings.Contains(value, `\x`) {
		return value
	}
	var b strings.Builder
	for i := 0; i < len(value); i++ {
		if value[i] == '\\' && i+3 < len(value) && value[i+1] == 'x' {
			if n, err := strconv.ParseUint(value[i+2:i+4], 16, 8); err == nil {
				b.WriteByte(byte(n))
				i += 3
				continue
			}
		}
		b.WriteByte(value[i])
	}
	return b.String()
}
