// internal/directory/seed.go
package directory

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/v1kassh/escrawl-connect/internal/models"
)

// SeedFile is the optional YAML override for the default channel set.
type SeedFile struct {
	Channels []SeedChannel `yaml:"channels"`
}

type SeedChannel struct {
	Name         string   `yaml:"name"`
	Type         string   `yaml:"type"`
	Description  string   `yaml:"description"`
	AllowedRoles []string `yaml:"allowed_roles"`
	PostingRoles []string `yaml:"posting_roles"`
}

func allRoles() []models.Role {
	return []models.Role{models.RoleUser, models.RoleAdmin, models.RoleSuperAdmin}
}

func adminRoles() []models.Role {
	return []models.Role{models.RoleAdmin, models.RoleSuperAdmin}
}

// DefaultChannels is the built-in channel set created on first boot:
// the two globally exempt channels plus the admin-posted Announcements.
func DefaultChannels() []*models.Channel {
	return []*models.Channel{
		{
			Name:         "General",
			Type:         models.ChannelPublic,
			Description:  "General discussion for everyone",
			AllowedRoles: allRoles(),
			PostingRoles: allRoles(),
		},
		{
			Name:         "Announcements",
			Type:         models.ChannelAnnouncement,
			Description:  "Official announcements",
			AllowedRoles: allRoles(),
			PostingRoles: adminRoles(),
		},
		{
			Name:         "Random",
			Type:         models.ChannelPublic,
			Description:  "Random off-topic chat",
			AllowedRoles: allRoles(),
			PostingRoles: allRoles(),
		},
	}
}

// ResetDefaults is the channel set recreated by a system reset: General
// (everyone may post) and Announcements (admins only).
func ResetDefaults() []*models.Channel {
	return DefaultChannels()[:2]
}

// LoadSeedFile parses a YAML channel defaults file.
func LoadSeedFile(path string) ([]*models.Channel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read channel defaults: %w", err)
	}

	var file SeedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse channel defaults: %w", err)
	}

	channels := make([]*models.Channel, 0, len(file.Channels))
	for _, sc := range file.Channels {
		if sc.Name == "" {
			return nil, fmt.Errorf("channel defaults entry missing name")
		}
		c := &models.Channel{
			Name:         sc.Name,
			Type:         models.ChannelType(sc.Type),
			Description:  sc.Description,
			AllowedRoles: rolesFromStrings(sc.AllowedRoles),
			PostingRoles: rolesFromStrings(sc.PostingRoles),
		}
		if c.Type == "" {
			c.Type = models.ChannelPublic
		}
		if len(c.AllowedRoles) == 0 {
			c.AllowedRoles = allRoles()
		}
		if len(c.PostingRoles) == 0 {
			c.PostingRoles = allRoles()
		}
		channels = append(channels, c)
	}
	return channels, nil
}

// Seed ensures the default channels exist, creating any that are
// missing. An optional YAML file path overrides the built-in set.
func (d *Directory) Seed(ctx context.Context, defaultsPath string) error {
	defaults := DefaultChannels()
	if defaultsPath != "" {
		loaded, err := LoadSeedFile(defaultsPath)
		if err != nil {
			return err
		}
		defaults = loaded
	}

	for _, c := range defaults {
		if _, err := d.GetByName(ctx, c.Name); err == nil {
			continue
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}

		if _, err := d.Create(ctx, c); err != nil {
			// Lost a race with another boot path; fine.
			if errors.Is(err, ErrDuplicateName) {
				continue
			}
			return err
		}
		d.logger.Info("Created default channel", "name", c.Name)
	}
	return nil
}
