package gateway

import "github.com/zhouzirui/expert-panel/backend/internal/model/persona"

// defaultFallback is used when a tag has neither a pool nor a fallback sentence.
const defaultFallback = "I'd be happy to help with questions in my area of expertise."

// cannedResponses are served when the completion backend is unavailable or fails.
var cannedResponses = map[persona.Expertise][]string{
	persona.DevOps: {
		"I'd start by containerizing the service with Docker and wiring a CI/CD pipeline in GitHub Actions so every merge is built and tested the same way.",
		"I'd describe the infrastructure as code with Terraform so staging and production can be recreated on demand.",
		"I'd roll out with blue-green or canary deployments and watch Prometheus dashboards before shifting all traffic.",
	},
	persona.ReactNative: {
		"I'd use React Navigation here and keep an eye on the behaviour differences between iOS and Android.",
		"For long lists I'd reach for FlatList and memoize row components so scrolling stays smooth.",
		"I'd automate store builds with Fastlane so iOS and Android releases don't depend on one person's laptop.",
	},
	persona.Frontend: {
		"I'd keep shared state in a small store like Zustand and wrap risky views in error boundaries.",
		"I'd make the layout responsive first and use semantic HTML with proper ARIA labels for accessibility.",
		"I'd split the bundle by route and lazy load heavy components to keep the first paint fast.",
	},
	persona.Backend: {
		"I'd version the API from day one and put authentication and validation in middleware.",
		"I'd add structured logging and consistent error responses so failures are easy to trace.",
		"I'd cache the hot read paths in Redis and measure before optimizing anything else.",
	},
	persona.AIML: {
		"I'd start from a pre-trained model and fine-tune it on a small, clean dataset before building anything custom.",
		"I'd store embeddings in a vector database so similarity search stays fast as the corpus grows.",
		"I'd monitor the model in production and compare versions with A/B tests to catch drift early.",
	},
	persona.Database: {
		"I'd look at the query plans first and add indexes that match the filters you actually run.",
		"I'd choose between normalization and denormalization based on your read and write patterns.",
		"I'd set up automated backups and add read replicas once read traffic starts to dominate.",
	},
	persona.Security: {
		"I'd enforce HTTPS everywhere, tighten the CORS policy and keep secrets out of the codebase.",
		"I'd use short-lived access tokens with refresh token rotation for authentication.",
		"I'd validate every input and use parameterized queries so injection is off the table.",
	},
	persona.Architecture: {
		"I'd keep a modular monolith until the team and the load clearly justify splitting into services.",
		"I'd decouple the slow parts with a message queue so spikes don't cascade through the system.",
		"I'd design for failure with timeouts, circuit breakers and retries with exponential backoff.",
	},
	persona.Mobile: {
		"I'd make the app work offline first and sync changes in the background when the network returns.",
		"I'd batch network requests and cut background work to protect battery life.",
		"I'd show skeleton screens and load content progressively so slow networks still feel responsive.",
	},
	persona.Cloud: {
		"I'd lean on managed services and serverless functions to keep operational overhead low.",
		"I'd set up auto-scaling and budget alerts so cost grows with usage rather than ahead of it.",
		"I'd deploy across multiple regions and rehearse the disaster recovery plan regularly.",
	},
	persona.ProductManager: {
		"I'd start with a few user interviews to confirm which pain point we're actually solving.",
		"I'd agree on success metrics before building so we know whether the feature worked.",
		"I'd rank this against the roadmap by user impact and effort before committing the team.",
	},
}

// fallbackSentences are the single-sentence replies used when canned pools are disabled.
var fallbackSentences = map[persona.Expertise]string{
	persona.DevOps:       "As a DevOps engineer, I'd recommend focusing on automation and infrastructure as code for this type of challenge.",
	persona.ReactNative:  "From a React Native perspective, consider platform-specific optimizations and performance implications.",
	persona.Frontend:     "As a frontend developer, I'd focus on user experience and performance optimization for this scenario.",
	persona.Backend:      "From a backend perspective, consider scalability, security, and data integrity in your implementation.",
	persona.AIML:         "As an AI/ML engineer, I'd approach this by first focusing on data quality and model selection.",
	persona.Database:     "From a database perspective, consider indexing strategies and query optimization for better performance.",
	persona.Security:     "As a security expert, I'd recommend implementing defense in depth and following security best practices.",
	persona.Architecture: "From an architectural standpoint, consider system scalability and maintainability in your design.",
	persona.Mobile:       "As a mobile specialist, focus on device constraints and user experience optimization.",
	persona.Cloud:        "From a cloud perspective, leverage managed services and consider cost optimization strategies.",
}

// CannedPool returns the canned responses for a tag, falling back to the
// backend pool when the tag has none.
func CannedPool(tag persona.Expertise) []string {
	if pool, ok := cannedResponses[tag]; ok && len(pool) > 0 {
		return pool
	}
	return cannedResponses[persona.Backend]
}

// FallbackSentence returns the single fallback reply for a tag.
func FallbackSentence(tag persona.Expertise) string {
	if sentence, ok := fallbackSentences[tag]; ok {
		return sentence
	}
	return defaultFallback
}
