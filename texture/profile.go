package texture

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// TexturesProperty is the profile property that carries skin data.
const TexturesProperty = "textures"

// Profile is the session-service profile document.
type Profile struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Properties []Property `json:"properties"`
}

// Property is one signed profile property.
type Property struct {
	Name      string `json:"name"`
	Value     string `json:"value"`
	Signature string `json:"signature,omitempty"`
}

// Textures is the decoded value of the textures property.
type Textures struct {
	Timestamp   int64                `json:"timestamp"`
	ProfileID   string               `json:"profileId"`
	ProfileName string               `json:"profileName"`
	Textures    map[string]Reference `json:"textures"`
}

// Reference points at one texture image.
type Reference struct {
	URL      string            `json:"url"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SkinURL returns the skin URL carried by the profile.
// It fails with ErrNotFound when the profile has no textures property or the
// textures carry no SKIN entry, and with ErrRemote when the property is
// malformed.
func (p Profile) SkinURL() (string, error) {
	for _, prop := range p.Properties {
		if prop.Name != TexturesProperty {
			continue
		}
		tex, err := DecodeTextures(prop.Value)
		if err != nil {
			return "", err
		}
		skin, ok := tex.Textures["SKIN"]
		if !ok || strings.TrimSpace(skin.URL) == "" {
			return "", fmt.Errorf("%w: profile %s has no skin", ErrNotFound, p.ID)
		}
		return skin.URL, nil
	}
	return "", fmt.Errorf("%w: profile %s has no textures property", ErrNotFound, p.ID)
}

// DecodeTextures decodes a base64 textures property value.
func DecodeTextures(value string) (Textures, error) {
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return Textures{}, fmt.Errorf("%w: decode textures property: %w", ErrRemote, err)
	}
	var tex Textures
	if err := json.Unmarshal(raw, &tex); err != nil {
		return Textures{}, fmt.Errorf("%w: parse textures property: %w", ErrRemote, err)
	}
	return tex, nil
}

// EncodeTextures is the inverse of DecodeTextures.
func EncodeTextures(tex Textures) (string, error) {
	raw, err := json.Marshal(tex)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
