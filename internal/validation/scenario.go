package validation

// Scenario is one fixed text injected into every exercised application.
type Scenario struct {
	Name string
	Text string
}

// Scenarios returns the standard battery in run order.
func Scenarios() []Scenario {
	return []Scenario{
		{Name: "plain_ascii", Text: "Hello World 123"},
		{Name: "unicode", Text: "Test with unicode: αβγδεζηθ"},
		{Name: "symbols", Text: "Symbols: !@#$%^&*()_+-=[]{}|;':\",./<>?"},
		{Name: "multiline", Text: "Line 1\nLine 2\nLine 3"},
		{Name: "code", Text: "func main() {\n\tfmt.Println(\"hello\")\n}"},
	}
}
