package classify

// ruleSet is the declarative evidence table for one category.
type ruleSet struct {
	// Imports are module-name keywords matched against extracted imports.
	Imports []string

	// PathKeywords are substrings matched against the lowercased path.
	PathKeywords []string

	// ContentPatterns are substrings matched against the lowercased content.
	ContentPatterns []string
}

// categories fixes the evaluation order so classification is deterministic.
var categories = []CodeType{
	TypeGUI,
	TypeAIML,
	TypeDataProcessing,
	TypeImageProcessing,
	TypeWebAPI,
	TypeDatabase,
	TypeAlgorithm,
	TypeTesting,
	TypeNetworking,
	TypeAutomation,
}

// ruleTable maps each category to its evidence signals.
var ruleTable = map[CodeType]ruleSet{
	TypeGUI: {
		Imports:         []string{"tkinter", "pyqt", "pyside", "wx", "kivy", "pygame", "gtk", "ttk", "customtkinter"},
		PathKeywords:    []string{"gui", "ui", "interface", "window", "dialog", "widget"},
		ContentPatterns: []string{"mainloop(", ".pack(", ".grid(", "qapplication"},
	},
	TypeAIML: {
		Imports: []string{
			"tensorflow", "keras", "torch", "pytorch", "sklearn", "scikit-learn", "xgboost",
			"lightgbm", "catboost", "transformers", "huggingface", "openai", "langchain",
		},
		PathKeywords:    []string{"ai", "ml", "machine_learning", "deep_learning", "neural", "model", "training"},
		ContentPatterns: []string{".fit(", ".predict(", "epochs", "gradient"},
	},
	TypeDataProcessing: {
		Imports: []string{
			"pandas", "numpy", "scipy", "dask", "polars", "vaex", "csv", "json", "xml",
			"openpyxl", "xlrd", "pyarrow", "parquet",
		},
		PathKeywords:    []string{"data", "etl", "pipeline", "processing", "transform", "clean"},
		ContentPatterns: []string{"dataframe", ".groupby(", "read_csv"},
	},
	TypeImageProcessing: {
		Imports: []string{
			"pil", "pillow", "cv2", "opencv", "skimage", "imageio", "mahotas",
			"simpleitk", "scikit-image",
		},
		PathKeywords:    []string{"image", "img", "vision", "photo", "picture", "pixel"},
		ContentPatterns: []string{"imread(", "imwrite(", ".convert('rgb"},
	},
	TypeWebAPI: {
		Imports: []string{
			"flask", "django", "fastapi", "requests", "aiohttp", "httpx", "bottle",
			"tornado", "starlette", "uvicorn", "gunicorn",
		},
		PathKeywords:    []string{"web", "api", "server", "http", "rest", "endpoint", "route"},
		ContentPatterns: []string{"@app.route", "@app.get", "httpresponse", "render_template"},
	},
	TypeDatabase: {
		Imports: []string{
			"sqlite3", "sqlalchemy", "pymongo", "redis", "psycopg2", "mysql",
			"pymysql", "mongoengine", "peewee", "tortoise",
		},
		PathKeywords:    []string{"database", "db", "sql", "mongo", "storage", "repository"},
		ContentPatterns: []string{"select ", "insert into", "create table", ".execute("},
	},
	TypeAlgorithm: {
		Imports:         []string{"collections", "heapq", "bisect", "itertools", "functools", "operator"},
		PathKeywords:    []string{"algorithm", "algo", "sort", "search", "graph", "tree", "dp", "dynamic"},
		ContentPatterns: []string{"memoize", "def solve(", "dijkstra", "binary_search"},
	},
	TypeTesting: {
		Imports:         []string{"pytest", "unittest", "nose", "mock", "hypothesis", "coverage", "tox"},
		PathKeywords:    []string{"test", "spec", "unittest", "pytest", "mock"},
		ContentPatterns: []string{"def test_", "assertequal", "@pytest.fixture"},
	},
	TypeNetworking: {
		Imports:         []string{"socket", "asyncio", "twisted", "paramiko", "fabric", "netmiko", "scapy"},
		PathKeywords:    []string{"network", "socket", "tcp", "udp", "protocol", "packet"},
		ContentPatterns: []string{"socket.socket", "async def", "await ", ".recv(", ".sendall("},
	},
	TypeAutomation: {
		Imports: []string{
			"subprocess", "shutil", "glob", "pathlib", "argparse", "click", "typer",
			"schedule", "watchdog", "pyautogui", "selenium",
		},
		PathKeywords:    []string{"script", "automation", "bot", "task", "cron", "job"},
		ContentPatterns: []string{"subprocess.run", "os.system(", "argumentparser"},
	},
}
