package layout

// RenderingLayoutOption is a functional option used to configure a RenderingLayout at creation.
type RenderingLayoutOption func(l *renderingLayout)

// WithLabel sets the debug label of the layout and of the vertex fetches it builds.
//
// Parameters:
//   - label: the debug label
//
// Returns:
//   - RenderingLayoutOption: a function that sets the label
func WithLabel(label string) RenderingLayoutOption {
	return func(l *renderingLayout) {
		l.label = label
	}
}
