// Package mcp exposes a state system to Model Context Protocol clients: tools
// to dispatch actions and read the state, and the state as a resource.
package mcp
