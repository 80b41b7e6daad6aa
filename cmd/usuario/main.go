package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/chamados/internal/auth"
	"github.com/gestaozabele/chamados/internal/db"
	"github.com/gestaozabele/chamados/internal/service"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	_ = godotenv.Load()

	ctx := context.Background()

	dsn := strings.TrimSpace(os.Getenv("DB_DSN"))
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}
	if dsn == "" {
		log.Fatal().Msg("defina DB_DSN ou DATABASE_URL")
	}

	pool, err := db.NewPool(ctx, dsn, 2)
	if err != nil {
		log.Fatal().Err(err).Msg("não foi possível conectar ao banco")
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("falha ao aplicar schema")
	}

	usuarios := service.NewUsuarioService(db.NewGateway(pool, auth.Matches))

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "create":
		if err := runCreate(ctx, usuarios, args); err != nil {
			log.Fatal().Err(err).Msg("falha ao criar usuário")
		}
	case "list":
		if err := runList(ctx, usuarios, args); err != nil {
			log.Fatal().Err(err).Msg("falha ao listar usuários")
		}
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usuario CLI")
	fmt.Fprintln(os.Stderr, "uso:")
	fmt.Fprintln(os.Stderr, "  usuario create --nome \"Alice\" --email alice@escola.local --senha segredo123 --funcao administrador")
	fmt.Fprintln(os.Stderr, "  usuario list [--funcao tecnico]")
}

func runCreate(ctx context.Context, usuarios *service.UsuarioService, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		nome   = fs.String("nome", "", "nome exibido")
		email  = fs.String("email", "", "e-mail de login")
		senha  = fs.String("senha", "", "senha inicial (mínimo 8 caracteres)")
		funcao = fs.String("funcao", "usuario", "usuario, tecnico ou administrador")
	)

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *nome == "" || *email == "" || *senha == "" {
		return errors.New("nome, email e senha são obrigatórios")
	}

	created, err := usuarios.Create(ctx, service.CreateUsuarioInput{
		Nome:   *nome,
		Email:  *email,
		Senha:  *senha,
		Funcao: *funcao,
	})
	if err != nil {
		return err
	}

	output, _ := json.MarshalIndent(created, "", "  ")
	fmt.Println(string(output))
	return nil
}

func runList(ctx context.Context, usuarios *service.UsuarioService, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	funcao := fs.String("funcao", "", "filtra pela função")
	if err := fs.Parse(args); err != nil {
		return err
	}

	list, err := usuarios.List(ctx, *funcao)
	if err != nil {
		return err
	}

	if len(list) == 0 {
		fmt.Println("nenhum usuário cadastrado")
		return nil
	}

	encoded, _ := json.MarshalIndent(list, "", "  ")
	fmt.Println(string(encoded))
	return nil
}
