// Package extension coordinates extension hooks at named lifecycle points.
//
// Every lifecycle a run passes through pushes a LifecycleState onto a Stack.
// The stack keeps all of them, so a failure in a later stage can roll back
// the actions registered by every earlier lifecycle, and a successful run
// commits every lifecycle in the order it ran.
package extension
