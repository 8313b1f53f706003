package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"qtrestaurant/internal/auth"
	"qtrestaurant/internal/backend"
	"qtrestaurant/internal/cart"
	"qtrestaurant/internal/chat"
	"qtrestaurant/internal/checkout"
	"qtrestaurant/internal/config"
	"qtrestaurant/internal/logging"
	"qtrestaurant/internal/menu"
	"qtrestaurant/internal/models"
	"qtrestaurant/internal/orders"
	"qtrestaurant/internal/state"
	"qtrestaurant/internal/tui"
)

var (
	configFile = flag.String("config", "configs/config.yaml", "Path to configuration file")
	statePath  = flag.String("state", "", "Path to the local state database (overrides config)")
	exportDir  = flag.String("export-dir", ".", "Directory for exported order history")
	logFile    = flag.String("log-file", "qtclient.log", "Where the client writes its log")
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] [menu [term]|dish <id>|register|reset-password]\n", filepath.Base(os.Args[0]))
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *statePath != "" {
		cfg.Client.StatePath = *statePath
	}

	// The terminal belongs to the UI, so the log goes to a file.
	out, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()
	log := logging.NewWithOutput(cfg.Log, out)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st, err := state.Open(cfg.Client.StatePath)
	if err != nil {
		log.Fatalf("Failed to open local state: %v", err)
	}
	defer st.Close()

	api := backend.NewClient(cfg.Client.BackendURL,
		backend.WithHTTPClient(&http.Client{Timeout: cfg.Client.Timeout}),
		backend.WithTokenSource(st),
		backend.WithLogger(log),
	)
	session := auth.NewSession(api, st, log)

	switch flag.Arg(0) {
	case "":
		err = runUI(ctx, cfg, st, api, session, log)
	case "menu":
		err = runMenu(ctx, api, strings.Join(flag.Args()[1:], " "), log)
	case "dish":
		err = runDish(ctx, api, flag.Arg(1))
	case "register":
		err = runRegister(ctx, session)
	case "reset-password":
		err = runReset(ctx, cfg, log)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runUI(ctx context.Context, cfg *config.Config, st *state.Store, api *backend.Client, session *auth.Session, log logrus.FieldLogger) error {
	store := cart.NewStore(st, log)
	if err := store.Restore(); err != nil {
		log.WithError(err).Warn("Starting with an empty cart")
	}

	catalog := menu.NewCatalog(api, log)
	sender := chat.NewClient(cfg.Client.ChatURL,
		chat.WithHTTPClient(&http.Client{Timeout: cfg.Client.Timeout}),
		chat.WithHistoryLimit(cfg.Client.HistoryLimit),
		chat.WithUserID(st.Username),
		chat.WithClientLogger(log),
	)

	return tui.Run(ctx, tui.Deps{
		Catalog:   catalog,
		Cart:      store,
		Assistant: chat.NewAssistant(sender, catalog, store, cfg.Client.HistoryLimit, log),
		Session:   session,
		Checkout: func() *checkout.Wizard {
			return checkout.NewWizard(api, st, store, log)
		},
		Payment:   checkout.NewPayment(api, st, store, cfg.Client.Payment, log),
		History:   orders.NewHistory(api, log),
		ExportDir: *exportDir,
		Log:       log,
	})
}

func runMenu(ctx context.Context, api *backend.Client, term string, log logrus.FieldLogger) error {
	catalog := menu.NewCatalog(api, log)
	if _, err := catalog.Load(ctx); err != nil {
		return errors.New(backend.Message(err, "Không thể tải thực đơn"))
	}
	for _, it := range catalog.Search(term) {
		fmt.Printf("%4d  %-32s %s\n", it.ID, it.Name, models.FormatVND(it.Price))
	}
	return nil
}

func runDish(ctx context.Context, api *backend.Client, arg string) error {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return errors.Errorf("invalid dish id %q", arg)
	}
	it, err := api.MenuItem(ctx, id)
	if err != nil {
		return errors.New(backend.Message(err, "Không tìm thấy món ăn"))
	}
	fmt.Printf("%s  %s\n", it.Name, models.FormatVND(it.Price))
	if it.Description != "" {
		fmt.Println(it.Description)
	}
	if it.Ingredients != "" {
		fmt.Println("Thành phần:", it.Ingredients)
	}
	if it.Allergens != "" {
		fmt.Println("Dị ứng:", it.Allergens)
	}
	if it.Calories > 0 {
		fmt.Printf("Calories: %.0f kcal\n", it.Calories)
	}
	return nil
}

func prompt(in *bufio.Reader, label string) string {
	fmt.Print(label + ": ")
	line, _ := in.ReadString('\n')
	return strings.TrimRight(line, "\r\n")
}

func runRegister(ctx context.Context, session *auth.Session) error {
	in := bufio.NewReader(os.Stdin)
	form := auth.RegisterForm{
		Username:        prompt(in, "Tên đăng nhập"),
		Password:        prompt(in, "Mật khẩu"),
		ConfirmPassword: prompt(in, "Xác nhận mật khẩu"),
		FullName:        prompt(in, "Họ và tên"),
		Email:           prompt(in, "Email"),
		Phone:           prompt(in, "Số điện thoại"),
	}
	if err := session.Register(ctx, form); err != nil {
		return errors.New(backend.Message(err, auth.RegisterFailed))
	}
	fmt.Println("Đăng ký thành công! Vui lòng đăng nhập.")
	return nil
}

func runReset(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) error {
	in := bufio.NewReader(os.Stdin)
	reset := auth.NewReset(auth.NewEmailJS(cfg.Client.EmailJS, nil), log)

	if err := reset.Send(ctx, prompt(in, "Email khôi phục")); err != nil {
		return errors.Wrap(err, "Gửi thất bại! Kiểm tra lại ID hoặc kết nối mạng")
	}
	fmt.Printf("Mã xác nhận gồm 6 số đã được gửi tới: %s\n", reset.Email())

	for {
		err := reset.Verify(prompt(in, "Mã OTP"))
		if err == nil {
			break
		}
		fmt.Println(backend.Message(err, "Mã OTP không chính xác"))
		if errors.Is(err, auth.ErrPasscodeExpired) {
			return err
		}
	}
	fmt.Println("Xác thực thành công!")

	for {
		err := reset.Complete(prompt(in, "Mật khẩu mới"))
		if err == nil {
			break
		}
		fmt.Println(backend.Message(err, "Mật khẩu không hợp lệ"))
	}
	fmt.Println("Mật khẩu đã được cập nhật thành công!")
	return nil
}
