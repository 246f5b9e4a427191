// Package menu builds the application menu from the current keybinds and
// slot availability.
//
// Build is pure: the same configuration and keybinds always produce the same
// Tree. Installing a tree is the only side effect and is delegated to an
// Installer, which swaps the whole menu at once. Synchronizer ties the two
// together for callers that react to menu:reload messages.
package menu
