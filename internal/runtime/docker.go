package runtime

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/moby/moby/api/pkg/stdcopy"
	"github.com/moby/moby/api/types/network"
	"github.com/moby/moby/client"
)

// DockerRuntime queries containers through the Docker API. All calls are
// structured inspections; no command output is ever parsed.
type DockerRuntime struct {
	cli *client.Client
}

// NewDocker connects a DockerRuntime using the environment's Docker endpoint.
func NewDocker() (*DockerRuntime, error) {
	cli, err := client.New(client.FromEnv)
	if err != nil {
		return nil, fmt.Errorf("connecting to docker: %w", err)
	}
	return &DockerRuntime{cli: cli}, nil
}

// Close releases the underlying API connection.
func (d *DockerRuntime) Close() error {
	return d.cli.Close()
}

// IsRunning reports whether the named container exists and is in the running
// state. A missing container is an error; the caller decides how to degrade.
func (d *DockerRuntime) IsRunning(ctx context.Context, name string) (bool, error) {
	insp, err := d.cli.ContainerInspect(ctx, name, client.ContainerInspectOptions{})
	if err != nil {
		return false, fmt.Errorf("inspecting %s: %w", name, err)
	}
	return insp.Container.State.Running, nil
}

// Status returns the container's running state and last exit code.
func (d *DockerRuntime) Status(ctx context.Context, name string) (Status, error) {
	insp, err := d.cli.ContainerInspect(ctx, name, client.ContainerInspectOptions{})
	if err != nil {
		return Status{}, fmt.Errorf("inspecting %s: %w", name, err)
	}
	return Status{
		Running:  insp.Container.State.Running,
		ExitCode: insp.Container.State.ExitCode,
	}, nil
}

// LogTail returns up to lines of the container's most recent stdout and
// stderr output, demuxed into a single stream.
func (d *DockerRuntime) LogTail(ctx context.Context, name string, lines int) (string, error) {
	out, err := d.cli.ContainerLogs(ctx, name, client.ContainerLogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       strconv.Itoa(lines),
	})
	if err != nil {
		return "", fmt.Errorf("reading logs for %s: %w", name, err)
	}
	defer out.Close()

	var buf bytes.Buffer
	if _, err := stdcopy.StdCopy(&buf, &buf, out); err != nil {
		return "", fmt.Errorf("demuxing logs for %s: %w", name, err)
	}
	return buf.String(), nil
}

// NetworkAddr returns the container's IP on its first attached network.
func (d *DockerRuntime) NetworkAddr(ctx context.Context, name string) (string, error) {
	insp, err := d.cli.ContainerInspect(ctx, name, client.ContainerInspectOptions{})
	if err != nil {
		return "", fmt.Errorf("inspecting %s: %w", name, err)
	}

	settings := insp.Container.NetworkSettings
	if settings == nil {
		return "", fmt.Errorf("container %s has no network settings", name)
	}
	addr, ok := firstNetworkAddr(settings.Networks)
	if !ok {
		return "", fmt.Errorf("container %s has no network address", name)
	}
	return addr, nil
}

// firstNetworkAddr picks the first endpoint that has been assigned an IP.
// Endpoints without an address (host or none networks, or a container still
// attaching) report the zero netip.Addr.
func firstNetworkAddr(networks map[string]*network.EndpointSettings) (string, bool) {
	for _, ep := range networks {
		if ep != nil && ep.IPAddress.IsValid() {
			return ep.IPAddress.String(), true
		}
	}
	return "", false
}
