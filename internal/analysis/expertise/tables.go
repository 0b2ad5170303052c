package expertise

import "github.com/zhouzirui/expert-panel/backend/internal/model/persona"

type keywordBucket struct {
	Expertise persona.Expertise
	Keywords  []string
}

// keywordBuckets is scanned in order; the order decides which experts answer first.
var keywordBuckets = []keywordBucket{
	{persona.DevOps, []string{
		"deploy", "deployment", "docker", "kubernetes", "k8s", "ci/cd", "pipeline",
		"aws", "azure", "gcp", "cloud", "infrastructure", "terraform", "ansible",
		"jenkins", "github actions", "gitlab ci", "monitoring", "prometheus",
		"grafana", "helm", "nginx", "load balancer",
	}},
	{persona.ReactNative, []string{
		"react native", "mobile app", "ios", "android", "expo", "navigation",
		"react navigation", "metro", "flipper", "fastlane", "xcode",
		"android studio", "app store", "play store", "playstore", "app connect",
		"app store connect", "google play console", "apple developer", "publish",
		"publishing", "submission", "native modules", "bridging", "codepush", "eas",
		"app review", "app approval", "app distribution", "testflight", "beta testing",
	}},
	{persona.Frontend, []string{
		"react", "vue", "angular", "css", "html", "ui", "ux", "frontend",
		"component", "javascript", "typescript", "webpack", "vite", "sass",
		"tailwind", "bootstrap", "responsive", "accessibility", "seo",
		"performance", "bundle", "spa", "pwa",
	}},
	{persona.Backend, []string{
		"api", "rest", "graphql", "server", "backend", "node", "express",
		"fastify", "nest", "middleware", "endpoint", "microservice", "lambda",
		"serverless", "authentication", "authorization", "validation",
		"orm", "prisma", "typeorm", "sequelize",
	}},
	{persona.AIML, []string{
		"machine learning", "ml", "ai", "artificial intelligence", "neural network",
		"deep learning", "tensorflow", "pytorch", "keras", "scikit-learn",
		"model", "training", "dataset", "algorithm", "regression", "classification",
		"clustering", "nlp", "computer vision", "embedding", "transformer",
		"llm", "gpt", "bert",
	}},
	{persona.Database, []string{
		"database", "sql", "nosql", "mongodb", "postgresql", "postgres", "mysql",
		"redis", "elasticsearch", "query", "index", "optimization", "migration",
		"schema", "transaction", "acid", "replication", "sharding", "backup",
		"restore", "performance tuning", "normalization",
	}},
	{persona.Security, []string{
		"security", "encryption", "decryption", "vulnerability", "penetration testing",
		"auth", "authentication", "authorization", "jwt", "oauth", "saml", "ssl",
		"tls", "https", "certificate", "firewall", "cors", "csrf", "xss",
		"sql injection", "hashing", "bcrypt", "password", "token",
	}},
	{persona.Architecture, []string{
		"architecture", "design pattern", "microservices", "monolith", "scalability",
		"system design", "distributed system", "event driven", "message queue",
		"pub/sub", "caching", "cdn", "load balancing", "database design",
		"api design", "clean architecture", "hexagonal", "ddd", "cqrs",
	}},
	{persona.Mobile, []string{
		"mobile", "smartphone", "tablet", "responsive", "touch", "gesture",
		"offline", "push notification", "app store optimization", "mobile performance",
		"battery optimization", "memory management", "cross-platform", "app store",
		"play store", "playstore", "app connect", "app store connect", "publishing",
		"publish", "submission", "app review", "app approval", "app distribution",
		"google play console", "apple developer", "testflight", "mobile deployment",
		"app release", "app submission", "mobile publishing",
	}},
	{persona.Cloud, []string{
		"cloud computing", "aws", "azure", "google cloud", "gcp", "serverless",
		"lambda", "functions", "containers", "orchestration", "auto-scaling",
		"cloud storage", "s3", "blob storage", "cloud database", "cloud security",
	}},
	{persona.ProductManager, []string{
		"product", "product management", "roadmap", "strategy", "user research",
		"user experience", "ux", "user story", "requirements", "backlog",
		"prioritization", "mvp", "minimum viable product", "kpi", "metrics",
		"analytics", "a/b testing", "conversion", "retention", "churn",
		"market research", "competitive analysis", "go-to-market", "gtm",
		"persona", "user journey", "feature", "epic", "sprint planning",
		"stakeholder", "business case", "roi", "revenue", "growth",
	}},
}

// complementary pairs a lone expert with the colleague most likely to add a second angle.
var complementary = map[persona.Expertise][]persona.Expertise{
	persona.DevOps:       {persona.Backend, persona.Architecture},
	persona.ReactNative:  {persona.Frontend, persona.Mobile},
	persona.Frontend:     {persona.Backend, persona.Architecture},
	persona.Backend:      {persona.DevOps, persona.Database},
	persona.AIML:         {persona.Backend, persona.Cloud},
	persona.Database:     {persona.Backend, persona.Architecture},
	persona.Security:     {persona.DevOps, persona.Backend},
	persona.Architecture: {persona.DevOps, persona.Backend},
	persona.Mobile:       {persona.ReactNative, persona.Frontend},
	persona.Cloud:        {persona.DevOps, persona.Architecture},
}

// rollCall is the panel returned when the user addresses everybody.
var rollCall = []persona.Expertise{
	persona.Backend, persona.Frontend, persona.ReactNative, persona.DevOps, persona.Mobile,
	persona.AIML, persona.Database, persona.Security, persona.Architecture, persona.Cloud,
}

var (
	// defaultTeam answers technical questions that hit no keyword.
	defaultTeam = []persona.Expertise{persona.Backend, persona.Frontend, persona.DevOps, persona.Architecture}

	greetingExpert       = persona.Backend
	acknowledgmentExpert = persona.Backend
	genericExpert        = persona.Backend
)

const (
	maxMultiExperts   = 4
	maxDefaultExperts = 2
	shortMessageWords = 4
)

var rollCallPhrases = []string{
	"all experts", "each of you", "introduce yourselves", "all 10 experts",
	"everyone introduce", "all of you", "every expert", "each expert",
	"all team members", "whole team",
}

// mentionPatterns are expanded with the lower-cased display name.
var mentionPatterns = []string{
	"what are %s's expertise",
	"what is %s's expertise",
	"%s's expertise",
	"what are your expertise %s",
	"what is your expertise %s",
	"what are %s expertise",
	"what does %s do",
	"%s skills",
	"my question is from %s",
	"question is from %s",
	"asking %s",
	"for %s",
}

var pureGreetings = []string{
	"hello", "hi", "hey", "hello!", "hi!", "hey!",
	"good morning", "good afternoon", "good evening",
}

var acknowledgmentStatements = []string{
	"i don't have any questions",
	"i don't need help",
	"no questions for",
	"not interested in",
	"i'm good with",
	"all set with",
}

var genericIndicators = []string{
	// conversational
	"hello", "hi", "hey", "thanks", "thank you", "good morning", "good afternoon", "good evening",
	"got it", "ok", "okay", "alright", "sounds good", "cool", "nice",
	// broad questions
	"what is", "tell me about", "explain", "help me understand",
	"how to start", "getting started", "beginner", "basics", "introduction",
	"career", "advice", "recommendation", "opinion", "thoughts",
	// statements
	"i don't have", "i don't need", "no questions", "not interested", "i'm good", "all set",
}

var technicalIndicators = []string{
	"implement", "deploy", "configure", "setup", "build",
	"code", "development", "programming", "software",
	"system", "architecture", "design pattern", "scale",
	"error", "issue", "problem", "debug", "troubleshoot",
	"integrate", "connect", "api", "database",
}
