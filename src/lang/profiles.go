package lang

import (
	"encoding/json"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// cProfile builds with make and runs a fixed-name binary.
type cProfile struct{ base }

func (cProfile) TestCommand(string) []string { return nil }

func (cProfile) Instructions(string) []string {
	return []string{
		"COPY . .",
		"RUN make",
		`CMD ["./compiled-app"]`,
	}
}

// javaProfile builds the Maven project under app/.
type javaProfile struct{ base }

func (javaProfile) TestCommand(string) []string {
	return []string{"mvn", "-f", "app/pom.xml", "test"}
}

// Tests run in their own stage, so the package step skips them.
func (javaProfile) Instructions(string) []string {
	return []string{
		"COPY . .",
		"RUN mvn -f app/pom.xml -DskipTests package",
		`CMD ["java", "-jar", "app/target/app.jar"]`,
	}
}

// javascriptProfile installs production dependencies from package.json.
type javascriptProfile struct{ base }

// TestCommand returns npm test only when package.json declares a test script.
func (javascriptProfile) TestCommand(root string) []string {
	data, err := os.ReadFile(join(root, "package.json"))
	if err != nil {
		return nil
	}
	var pkg struct {
		Scripts map[string]any `json:"scripts"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil
	}
	if _, ok := pkg.Scripts["test"]; !ok {
		return nil
	}
	return []string{"npm", "test", "--", "--watch=false"}
}

// Manifests are copied first so the install layer survives source edits.
func (javascriptProfile) Instructions(string) []string {
	return []string{
		"COPY package*.json ./",
		"RUN npm ci --omit=dev || npm install --production",
		"COPY . .",
		`CMD ["node", "."]`,
	}
}

// pythonProfile runs the app package as a module.
type pythonProfile struct{ base }

var pytestMarkers = []string{"tests", "test", "pytest.ini"}

func (pythonProfile) TestCommand(root string) []string {
	for _, m := range pytestMarkers {
		// An unreadable marker counts as present so pytest reports the failure.
		if ok, err := Exists(join(root, m)); ok || err != nil {
			return pytestCommand()
		}
	}
	if pyprojectConfiguresPytest(root) {
		return pytestCommand()
	}
	return nil
}

func pytestCommand() []string {
	return []string{"python", "-m", "pytest"}
}

// pyprojectConfiguresPytest reports whether pyproject.toml carries a
// [tool.pytest.ini_options] table.
func pyprojectConfiguresPytest(root string) bool {
	data, err := os.ReadFile(join(root, "pyproject.toml"))
	if err != nil {
		return false
	}
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return false
	}
	tool, ok := doc["tool"].(map[string]any)
	if !ok {
		return false
	}
	pytest, ok := tool["pytest"].(map[string]any)
	if !ok {
		return false
	}
	_, ok = pytest["ini_options"]
	return ok
}

func (pythonProfile) Instructions(root string) []string {
	var instructions []string
	if ok, err := Exists(join(root, "requirements.txt")); ok || err != nil {
		instructions = append(instructions,
			"COPY requirements.txt ./",
			"RUN pip install --no-cache-dir -r requirements.txt",
		)
	} else {
		instructions = append(instructions, "# requirements.txt missing; skipping dependency installation")
	}
	return append(instructions,
		"COPY . .",
		`CMD ["python", "-m", "app"]`,
	)
}

// befungeProfile runs app/main.bf through the interpreter; there is nothing to install.
type befungeProfile struct{ base }

func (befungeProfile) TestCommand(string) []string { return nil }

func (befungeProfile) Instructions(string) []string {
	return []string{
		"COPY . .",
		`CMD ["befunge93", "app/main.bf"]`,
	}
}
