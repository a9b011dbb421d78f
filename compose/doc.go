// Package compose layers a decoration image and a player head into one icon.
package compose
