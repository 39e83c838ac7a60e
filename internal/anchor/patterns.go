package anchor

import "strings"

// Rule maps one issue keyword to the UI construct patterns that identify the
// offending line in a diff. A pattern is treated as a regular expression when
// it contains regex metacharacters, otherwise as a literal substring.
type Rule struct {
	Keyword  string
	Patterns []string
}

// Table is the immutable keyword-to-pattern configuration, keyed by platform
// tag. It is data, not logic: supporting a new framework is a table change.
type Table struct {
	Version     string
	ByExtension map[string]string
	Rules       map[string][]Rule
}

// Platform tags used by the default table.
const (
	PlatformCompose    = "android-compose"
	PlatformAndroidXML = "android-xml"
	PlatformSwift      = "swift"
	PlatformWeb        = "web"
	PlatformGeneric    = "generic"
)

// PlatformForExtension maps a file extension (with leading dot) to a platform
// tag, defaulting to the generic rule set.
func (t Table) PlatformForExtension(ext string) string {
	if p, ok := t.ByExtension[strings.ToLower(ext)]; ok {
		return p
	}
	return PlatformGeneric
}

// DefaultTable returns the built-in pattern table covering Android Compose,
// Android XML layouts, SwiftUI/UIKit and web markup.
func DefaultTable() Table {
	return Table{
		Version: "2024-06",
		ByExtension: map[string]string{
			".kt":    PlatformCompose,
			".kts":   PlatformCompose,
			".java":  PlatformCompose,
			".xml":   PlatformAndroidXML,
			".swift": PlatformSwift,
			".m":     PlatformSwift,
			".mm":    PlatformSwift,
			".html":  PlatformWeb,
			".htm":   PlatformWeb,
			".jsx":   PlatformWeb,
			".tsx":   PlatformWeb,
			".js":    PlatformWeb,
			".ts":    PlatformWeb,
			".vue":   PlatformWeb,
		},
		Rules: map[string][]Rule{
			PlatformCompose: {
				{"slider", []string{"Slider("}},
				{"switch", []string{"Switch("}},
				{"toggle", []string{"Switch(", "Toggle("}},
				{"button", []string{"Button(", "IconButton("}},
				{"textfield", []string{"TextField(", "OutlinedTextField("}},
				{"text", []string{"Text("}},
				{"image", []string{"Icon(", "Image("}},
				{"icon", []string{"Icon("}},
				{"clickable", []string{".clickable"}},
				{"label", []string{"contentDescription", ".semantics"}},
				{"contentdescription", []string{"contentDescription"}},
			},
			PlatformAndroidXML: {
				{"slider", []string{"<SeekBar"}},
				{"switch", []string{"<Switch"}},
				{"button", []string{"<Button", "<ImageButton"}},
				{"textfield", []string{"<EditText"}},
				{"text", []string{"<TextView"}},
				{"image", []string{"<ImageView"}},
				{"checkbox", []string{"<CheckBox"}},
				{"radio", []string{"<RadioButton"}},
				{"label", []string{"android:contentDescription", "android:labelFor"}},
				{"hint", []string{"android:hint"}},
				{"contentdescription", []string{"android:contentDescription"}},
			},
			PlatformSwift: {
				{"slider", []string{"Slider(", "UISlider"}},
				{"switch", []string{"Toggle(", "UISwitch"}},
				{"toggle", []string{"Toggle("}},
				{"button", []string{"Button(", "UIButton"}},
				{"textfield", []string{"TextField(", "SecureField(", "UITextField"}},
				{"text", []string{"Text(", "UILabel"}},
				{"image", []string{"Image(", "UIImageView"}},
				{"label", []string{".accessibilityLabel"}},
				{"hint", []string{".accessibilityHint"}},
			},
			PlatformWeb: {
				{"slider", []string{`<input[^>]*type\s*=\s*["']range`}},
				{"switch", []string{`<input[^>]*type\s*=\s*["']checkbox`}},
				{"checkbox", []string{`<input[^>]*type\s*=\s*["']checkbox`}},
				{"radio", []string{`<input[^>]*type\s*=\s*["']radio`}},
				{"button", []string{"<button"}},
				{"textfield", []string{"<input", "<textarea"}},
				{"select", []string{"<select"}},
				{"image", []string{"<img"}},
				{"label", []string{"aria-label", "<label", `alt\s*=`}},
				{"hint", []string{"aria-describedby"}},
				{"role", []string{`role\s*=`}},
			},
			// Generic rules cover files whose extension carries no platform
			// signal; patterns span all frameworks like the source tables did.
			PlatformGeneric: {
				{"slider", []string{"Slider(", "<SeekBar", "UISlider", `<input[^>]*type\s*=\s*["']range`}},
				{"switch", []string{"Switch(", "<Switch", "UISwitch", "Toggle("}},
				{"toggle", []string{"Toggle(", "Switch("}},
				{"button", []string{"Button(", "<Button", "UIButton", "<button"}},
				{"textfield", []string{"TextField(", "<EditText", "UITextField", "<input"}},
				{"text", []string{"Text(", "<TextView", "UILabel", "<label"}},
				{"image", []string{"<ImageView", "UIImageView", "<img", "Icon("}},
				{"label", []string{"accessibilityLabel", "android:contentDescription", "aria-label", `alt\s*=`}},
				{"hint", []string{"accessibilityHint", "android:hint", "aria-describedby"}},
				{"contentdescription", []string{"android:contentDescription", "contentDescription"}},
			},
		},
	}
}
