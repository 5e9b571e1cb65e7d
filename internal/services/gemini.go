package services

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	geminiModelName  = "gemini-1.5-flash"
	geminiCallBudget = 15 * time.Second

	fallbackResponse = "Désolé, je n'ai pas pu traiter votre demande. Pouvez-vous reformuler ?"
)

// ChatContext tailors the system prompt to the student.
type ChatContext struct {
	ClassLevel string
	Subject    string
}

// GeminiService wraps the Gemini chat-completion API. An unconfigured
// service (no API key, or client init failure) serves canned demo replies
// instead of erroring, so GenerateResponse never fails.
type GeminiService struct {
	client *genai.Client
}

func NewGeminiService(apiKey string) *GeminiService {
	if apiKey == "" {
		log.Println("Clé API Gemini non configurée. Mode démo activé.")
		return &GeminiService{}
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		log.Printf("Erreur configuration Gemini: %v. Mode démo activé.", err)
		return &GeminiService{}
	}

	log.Printf("Gemini configuré avec succès (modèle: %s)", geminiModelName)
	return &GeminiService{client: client}
}

// IsConfigured reports whether a usable client is available; surfaced by
// the health endpoint.
func (s *GeminiService) IsConfigured() bool {
	return s.client != nil
}

func (s *GeminiService) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

// GenerateResponse answers one student message. Provider failures are
// logged and absorbed into a fixed fallback string.
func (s *GeminiService) GenerateResponse(ctx context.Context, message string, chatCtx ChatContext) string {
	if s.client == nil {
		return demoResponse(message)
	}

	model := s.client.GenerativeModel(geminiModelName)
	model.SetTemperature(0.7)
	model.SetMaxOutputTokens(500)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(buildSystemPrompt(chatCtx))},
	}

	ctx, cancel := context.WithTimeout(ctx, geminiCallBudget)
	defer cancel()

	resp, err := model.GenerateContent(ctx, genai.Text(message))
	if err != nil {
		log.Printf("Erreur Gemini: %v", err)
		return fallbackResponse
	}

	text := extractText(resp)
	if text == "" {
		log.Println("Gemini a renvoyé une réponse vide")
		return fallbackResponse
	}
	return text
}

var classLevels = map[string]string{
	"cp1":       "CP1 (6-7 ans)",
	"cp2":       "CP2 (7-8 ans)",
	"ce1":       "CE1 (8-9 ans)",
	"ce2":       "CE2 (9-10 ans)",
	"cm1":       "CM1 (10-11 ans)",
	"cm2":       "CM2 (11-12 ans)",
	"6e":        "6e (12-13 ans)",
	"5e":        "5e (13-14 ans)",
	"4e":        "4e (14-15 ans)",
	"3e":        "3e (15-16 ans)",
	"seconde":   "seconde (16-17 ans)",
	"premiere":  "premiere (17-18 ans)",
	"terminale": "terminale (18-19 ans)",
}

var subjectNames = map[string]string{
	"francais":      "Français",
	"mathematiques": "Mathématiques",
	"sciences":      "Sciences",
	"histoire":      "Histoire",
	"geographie":    "Géographie",
	"emc":           "Éducation Morale et Civique",
}

const basePrompt = `Tu es un assistant éducatif bienveillant et pédagogue pour des élèves du primaire et du secondaire au Burkina Faso.

Tu dois :
- Expliquer les concepts de manière simple et adaptée à leur niveau
- Ne pas dire bonjour
- Ne pas faire de fautes dans l'écriture
- Être patient, encourageant et positif
- Utiliser des exemples concrets du contexte burkinabé
- Répondre toujours en français
- Aider l'élève à comprendre, pas juste donner la réponse
`

func buildSystemPrompt(chatCtx ChatContext) string {
	var sb strings.Builder
	sb.WriteString(basePrompt)

	if chatCtx.ClassLevel != "" {
		level := chatCtx.ClassLevel
		if known, ok := classLevels[chatCtx.ClassLevel]; ok {
			level = known
		}
		sb.WriteString("\n\nL'élève est en " + level + ". Adapte ton langage à son âge.")
	}

	if chatCtx.Subject != "" {
		subject := chatCtx.Subject
		if known, ok := subjectNames[chatCtx.Subject]; ok {
			subject = known
		}
		sb.WriteString("\nTu aides l'élève avec la matière: " + subject + ".")
	}

	return sb.String()
}

// demoResponses is ordered so the same message always picks the same reply.
var demoResponses = []struct {
	keyword string
	reply   string
}{
	{"bonjour", "Bonjour ! Je suis ton assistant éducatif. Comment puis-je t'aider aujourd'hui ? 😊"},
	{"addition", "L'addition permet de mettre ensemble plusieurs quantités. Par exemple, si tu as 2 mangues et que ton ami te donne 3 mangues, tu as 2 + 3 = 5 mangues en tout ! Veux-tu qu'on pratique ensemble ?"},
	{"aide", "Je suis là pour t'aider avec tes cours ! Tu peux me poser des questions sur les mathématiques, le français, les sciences, et bien plus. Quelle matière veux-tu étudier ?"},
}

const demoDefaultResponse = "Merci pour ton message ! Configure ta clé API Gemini dans le fichier .env pour activer l'IA complète. En attendant, je peux t'aider avec des réponses de base. Pose-moi une question sur l'école ! 📚"

func demoResponse(message string) string {
	lower := strings.ToLower(message)
	for _, dr := range demoResponses {
		if strings.Contains(lower, dr.keyword) {
			return dr.reply
		}
	}
	return demoDefaultResponse
}

// extractText returns the text of the first completion.
func extractText(resp *genai.GenerateContentResponse) string {
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		var sb strings.Builder
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		if s := strings.TrimSpace(sb.String()); s != "" {
			return s
		}
	}
	return ""
}
