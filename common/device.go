package common

import (
	log "github.com/sirupsen/logrus"

	"dev.hon.one/l2scheme/util"
)

// Dump dialects a target can be collected as.
const (
	TargetTypeDLink = "dlink"
	TargetTypeOLT   = "olt"
)

// Credential - Credential for a device.
type Credential struct {
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	PrivateKeyPath string `yaml:"private_key_path"`
}

// Target - A device to collect a config and MAC table dump from.
type Target struct {
	Address      string `yaml:"address"` // Unique
	Port         uint   `yaml:"port"`    // Optional, default to normal service port
	DeviceType   string `yaml:"device_type"`
	CredentialID string `yaml:"credential_id"`
}

// LoadCredentials - Load credentials from file from config.
func LoadCredentials() bool {
	if GlobalConfig.Collect.CredentialsPath == "" {
		log.Error("Credentials config path missing")
		return false
	}

	credentials := make(map[string]Credential)
	if err := util.ParseYAMLFile(&credentials, GlobalConfig.Collect.CredentialsPath); err != nil {
		log.WithError(err).Error("Failed to load credentials")
		return false
	}

	for credentialID, credential := range credentials {
		if credentialID == "" || credential.Username == "" {
			log.WithFields(log.Fields{
				"credential_id": credentialID,
			}).Error("Invalid credential, missing fields")
			return false
		}
	}

	GlobalCredentials = credentials
	log.WithFields(log.Fields{
		"credential_count": len(credentials),
		"credentials_path": GlobalConfig.Collect.CredentialsPath,
	}).Info("Loaded credentials")

	return true
}

// LoadTargets - Load collect targets from file from config. Credentials must be loaded first.
func LoadTargets() bool {
	if GlobalConfig.Collect.TargetsPath == "" {
		log.Error("Targets config path missing")
		return false
	}

	var targets []Target
	if err := util.ParseYAMLFile(&targets, GlobalConfig.Collect.TargetsPath); err != nil {
		log.WithError(err).Error("Failed to load targets")
		return false
	}

	if !ValidateTargets(targets, GlobalCredentials) {
		return false
	}

	GlobalTargets = targets
	log.WithFields(log.Fields{
		"target_count": len(targets),
		"targets_path": GlobalConfig.Collect.TargetsPath,
	}).Info("Loaded targets")

	return true
}

// ValidateTargets - Check targets for missing fields, duplicates, unknown types and unknown credentials.
func ValidateTargets(targets []Target, credentials map[string]Credential) bool {
	targetAddresses := make(map[string]bool)
	for _, target := range targets {
		if target.Address == "" || target.CredentialID == "" {
			log.WithFields(log.Fields{
				"device": target.Address,
			}).Error("Invalid target, missing fields")
			return false
		}
		// Check for duplicate address
		if targetAddresses[target.Address] {
			log.WithFields(log.Fields{
				"device": target.Address,
			}).Error("Duplicate target address found")
			return false
		}
		targetAddresses[target.Address] = true
		// Check if device type exists
		switch target.DeviceType {
		case TargetTypeDLink:
		case TargetTypeOLT:
		default:
			log.WithFields(log.Fields{
				"device":      target.Address,
				"device_type": target.DeviceType,
			}).Error("Invalid target, device type not found")
			return false
		}
		// Check if credential ID exists
		if _, found := credentials[target.CredentialID]; !found {
			log.WithFields(log.Fields{
				"device":        target.Address,
				"credential_id": target.CredentialID,
			}).Error("Invalid target, credential ID not found")
			return false
		}
	}
	return true
}
