package provisioning

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"golang.org/x/crypto/ssh"
)

// DefaultUsername is the cloud-config user when none is configured
const DefaultUsername = "instancectl"

var cloudConfigTemplate = template.Must(template.New("cloud-config").Parse(`#cloud-config
ssh_pwauth: no
users:
  - name: {{.Username}}
    sudo: ALL=(ALL) NOPASSWD:ALL
    shell: /bin/bash
    ssh_authorized_keys:
      - "{{.PublicKey}}"`))

// CloudConfigData represents the data for cloud-config template
type CloudConfigData struct {
	Username  string
	PublicKey string
}

// GenerateCloudConfig renders the user-data that creates username with
// publicKey authorized for SSH
func GenerateCloudConfig(username, publicKey string) (string, error) {
	key, err := normalizePublicKey(publicKey)
	if err != nil {
		return "", err
	}
	if username == "" {
		username = DefaultUsername
	}

	var buf bytes.Buffer
	if err := cloudConfigTemplate.Execute(&buf, CloudConfigData{
		Username:  username,
		PublicKey: key,
	}); err != nil {
		return "", fmt.Errorf("failed to execute cloud-config template: %w", err)
	}

	return buf.String(), nil
}

// normalizePublicKey parses a single authorized_keys line and returns it as
// "type base64 [comment]" with any options dropped
func normalizePublicKey(publicKey string) (string, error) {
	publicKey = strings.TrimSpace(publicKey)
	if publicKey == "" {
		return "", fmt.Errorf("ssh public key is empty")
	}

	pub, comment, _, rest, err := ssh.ParseAuthorizedKey([]byte(publicKey))
	if err != nil {
		return "", fmt.Errorf("failed to parse ssh public key: %w", err)
	}
	if len(bytes.TrimSpace(rest)) > 0 {
		return "", fmt.Errorf("ssh public key must be a single key")
	}
	if strings.ContainsRune(comment, '"') {
		return "", fmt.Errorf("ssh public key comment must not contain quotes")
	}

	key := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(pub)))
	if comment != "" {
		key += " " + comment
	}
	return key, nil
}
