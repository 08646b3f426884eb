package collect

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"

	"dev.hon.one/l2scheme/common"
)

// Runner - Runs a single command on a target and returns its output.
type Runner interface {
	Run(ctx context.Context, target common.Target, command string) (string, error)
}

// SSHRunner - Opens a new SSH connection for every command.
// Appropriate since the devices handle exec sessions well and shells need prompt handling.
type SSHRunner struct {
	Credentials map[string]common.Credential
	Timeout     time.Duration
}

// NewSSHRunner - Runner using the loaded credentials and collect timeout.
func NewSSHRunner() *SSHRunner {
	return &SSHRunner{
		Credentials: common.GlobalCredentials,
		Timeout:     time.Duration(common.GlobalConfig.Collect.TimeoutSeconds) * time.Second,
	}
}

// Run - Run the command and return its stdout. Stderr is only logged.
func (runner *SSHRunner) Run(ctx context.Context, target common.Target, command string) (string, error) {
	sshClient, err := runner.openSSHClient(target)
	if err != nil {
		return "", err
	}
	defer sshClient.Close()

	session, err := sshClient.NewSession()
	if err != nil {
		return "", fmt.Errorf("failed to start session: %w", err)
	}
	defer session.Close()
	stderrReader, err := session.StderrPipe()
	if err != nil {
		return "", fmt.Errorf("failed to get STDERR pipe: %w", err)
	}
	var stdout bytes.Buffer
	session.Stdout = &stdout
	drainSSHStreamLines(target, "STDERR", stderrReader)

	done := make(chan error, 1)
	go func() {
		done <- session.Run(command)
	}()
	select {
	case err = <-done:
	case <-ctx.Done():
		// Closing the client unblocks the session
		sshClient.Close()
		<-done
		return "", ctx.Err()
	}
	if err != nil {
		return "", fmt.Errorf("failed to run SSH command %q: %w", command, err)
	}
	return stdout.String(), nil
}

func (runner *SSHRunner) openSSHClient(target common.Target) (*ssh.Client, error) {
	// Get credential
	credential, foundCredential := runner.Credentials[target.CredentialID]
	if !foundCredential {
		return nil, fmt.Errorf("failed to find credential: %v", target.CredentialID)
	}

	// Setup SSH config
	authMethods := make([]ssh.AuthMethod, 0)
	if credential.Password != "" {
		authMethods = append(authMethods, ssh.Password(credential.Password))
	}
	if credential.PrivateKeyPath != "" {
		privkey, err := os.ReadFile(credential.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read SSH private key %v: %w", credential.PrivateKeyPath, err)
		}
		signer, err := ssh.ParsePrivateKey(privkey)
		if err != nil {
			return nil, fmt.Errorf("failed to parse SSH private key %v: %w", credential.PrivateKeyPath, err)
		}
		authMethods = append(authMethods, ssh.PublicKeys(signer))
	}
	sshConfig := ssh.ClientConfig{
		User:            credential.Username,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Auth:            authMethods,
		Timeout:         runner.Timeout,
	}

	// Open connection
	fullAddress := targetAddress(target)
	sshClient, err := ssh.Dial("tcp", fullAddress, &sshConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to device %v: %w", fullAddress, err)
	}
	return sshClient, nil
}

func targetAddress(target common.Target) string {
	port := uint(22)
	if target.Port > 0 {
		port = target.Port
	}
	return fmt.Sprintf("%v:%v", target.Address, port)
}

// Reads the stream in the background and just prints them to log if anything appears.
func drainSSHStreamLines(target common.Target, streamName string, reader io.Reader) {
	go func() {
		scanner := bufio.NewScanner(reader)
		for scanner.Scan() {
			log.WithFields(log.Fields{
				"device": target.Address,
			}).Tracef("Received line on %v: %v", streamName, scanner.Text())
		}
	}()
}
