package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"talkmate/internal/catalog"
	"talkmate/internal/config"
	"talkmate/internal/domain"
	"talkmate/internal/llm"
	"talkmate/internal/service"
)

func main() {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewNop()
	if os.Getenv("CLI_DEBUG") != "" {
		logger = zap.NewExample()
	}
	defer logger.Sync()

	registry := catalog.Default()
	provider := llm.NewRouterFromConfig(cfg, registry.Characters(), logger)

	// Sin player ni sintetizador: la CLI solo muestra texto.
	app := service.NewChatApp("cli", service.ChatDeps{
		Catalog:  registry,
		Provider: provider,
		Pacer: &service.RevealPacer{
			Base:      cfg.RevealBase(),
			PerRune:   cfg.RevealPerRune(),
			MaxJitter: cfg.RevealJitter(),
			Cap:       cfg.RevealCap(),
		},
		Logger:         logger,
		RequestTimeout: cfg.LLMTimeout(),
	}, nil, domain.NotifierFunc(func(e domain.Event) { printEvent(registry, e) }))
	defer app.Close()

	for {
		character, persona, ok := chooseConversation(reader, registry)
		if !ok {
			return
		}
		if _, err := app.Select(character.ID, persona.ID); err != nil {
			fmt.Printf("Error seleccionando personaje: %v\n", err)
			continue
		}
		printHistory(registry, app.Snapshot())
		if quit := chatFlow(ctx, reader, app); quit {
			return
		}
	}
}

func chooseConversation(reader *bufio.Reader, registry *catalog.Registry) (domain.Character, domain.Persona, bool) {
	for {
		fmt.Println("\n===== TalkMate =====")
		characters := registry.Characters()
		for i, c := range characters {
			fmt.Printf("[%d] %s - %s (%s)\n", i+1, c.Name, c.Description, c.Provider)
		}
		fmt.Println("[Q] Salir")
		fmt.Print("Selecciona un personaje: ")
		choice, err := reader.ReadString('\n')
		if err != nil {
			return domain.Character{}, domain.Persona{}, false
		}
		choice = strings.TrimSpace(choice)
		if strings.EqualFold(choice, "Q") {
			return domain.Character{}, domain.Persona{}, false
		}
		idx, err := strconv.Atoi(choice)
		if err != nil || idx < 1 || idx > len(characters) {
			fmt.Println("Seleccion invalida.")
			continue
		}
		character := characters[idx-1]

		personas := registry.Personas()
		fmt.Println("\nPersonas:")
		for i, p := range personas {
			fmt.Printf("[%d] %s - %s\n", i+1, p.Name, p.Description)
		}
		fmt.Print("Selecciona una persona (enter = por defecto): ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return domain.Character{}, domain.Persona{}, false
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return character, registry.DefaultPersona(), true
		}
		pIdx, err := strconv.Atoi(line)
		if err != nil || pIdx < 1 || pIdx > len(personas) {
			fmt.Println("Seleccion invalida.")
			continue
		}
		return character, personas[pIdx-1], true
	}
}

// chatFlow devuelve true si el usuario quiere cerrar la CLI.
func chatFlow(ctx context.Context, reader *bufio.Reader, app *service.ChatApp) bool {
	fmt.Println("---- Modo Chat ('/cambiar' para otro personaje, '/salir' para terminar) ----")
	for {
		text, err := reader.ReadString('\n')
		if err != nil {
			return true
		}
		text = strings.TrimSpace(text)
		switch text {
		case "":
			continue
		case "/salir":
			return true
		case "/cambiar":
			return false
		}

		turn, err := app.Submit(ctx, text)
		if err != nil {
			fmt.Printf("Error enviando mensaje: %v\n", err)
			continue
		}
		if turn == nil {
			fmt.Println("(en cola: se enviara cuando termine la respuesta actual)")
			continue
		}
		<-turn.Done()
		if err := app.Active().WaitIdle(ctx); err != nil {
			fmt.Printf("Error esperando respuesta: %v\n", err)
		}
	}
}

func printHistory(registry *catalog.Registry, session domain.Session) {
	if len(session.Messages) == 0 {
		return
	}
	fmt.Println("--- Historial ---")
	for _, m := range session.Messages {
		fmt.Println(formatMessage(registry, session.CharacterID, m))
	}
}

func printEvent(registry *catalog.Registry, e domain.Event) {
	switch e.Type {
	case domain.EventMessageAppended:
		if e.Message == nil || e.Message.Sender != domain.SenderAgent || e.Message.Streaming {
			return
		}
		fmt.Println(formatMessage(registry, e.CharacterID, *e.Message))
	case domain.EventNotice:
		if e.Notice != nil {
			fmt.Printf("[!] %s\n", e.Notice.Message)
		}
	}
}

func formatMessage(registry *catalog.Registry, characterID string, m domain.Message) string {
	if m.Sender == domain.SenderUser {
		return "Tu > " + m.Text
	}
	name := "Agente"
	if c, err := registry.Character(characterID); err == nil {
		name = c.Name
	}
	return name + " > " + m.Text
}
