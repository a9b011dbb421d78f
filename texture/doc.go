// Package texture downloads a player's skin from the remote profile service
// and cuts out the face as a 32x32 PNG.
//
// A fetch resolves the profile (GET {ProfileURL}/{uuid without hyphens}),
// decodes the base64 "textures" property to find the skin URL, downloads the
// skin, crops the 8x8 face region and scales it up with nearest-neighbour
// sampling. Every fetch runs through a resilience.Executor; there is no
// internal retry.
//
// Errors are classified as ErrNotFound (the player has no textures) or
// ErrRemote (anything else that went wrong talking to the remote side).
package texture
