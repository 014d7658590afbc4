/*
Package scene provides the host side of the state bridge: an element that owns
named events and a work loop, the systems initialized on it, and entities carrying
components.

A scene is driven by a single goroutine running Element.Run. Code on other
goroutines hands work to it with Element.Post (fire an event) or Element.Do (run a
function and wait), so systems never need their own locking.
*/
package scene
