package devenv

// Live test configs, relative to dev/.state.
const (
	MySchoolConfigFile = "myschool/config.json5"
	AlocConfigFile     = "aloc/config.json5"
)

// MySchoolTestConfig points the live scraper tests at a small slice of myschool.
type MySchoolTestConfig struct {
	BaseUrl  string `json:"base_url"`
	Subject  string `json:"subject"`
	ExamType string `json:"exam_type"`
	Year     int    `json:"year"`
	Limit    int    `json:"limit"`
}

type AlocTestConfig struct {
	BaseUrl string `json:"base_url"`
	Token   string `json:"token"`
	Subject string `json:"subject"`
}

// Templates are written into dev/.state by `go run ./dev` when missing.
var Templates = map[string]string{
	"pastq-server.json5": `{
  port: 8000,
  database: { file: "dev/.state/questions.db" },
  myschool: {
    subjects_cache: "dev/.state/subjects.json",
    pacing: { min_delay: 1000, max_delay: 3000 },
  },
  aloc: { token: "" },
}
`,
	MySchoolConfigFile: `{
  subject: "chemistry",
  exam_type: "waec",
  year: 2019,
  limit: 3,
}
`,
	AlocConfigFile: `{
  token: "",
  subject: "chemistry",
}
`,
}
