package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ByLCY/certify/assets"
	"github.com/ByLCY/certify/config"
	"github.com/ByLCY/certify/export"
	"github.com/ByLCY/certify/httpapi"
	"github.com/ByLCY/certify/layout"
	"github.com/ByLCY/certify/logger"
	"github.com/ByLCY/certify/mailer"
	"github.com/ByLCY/certify/objectstore"
	"github.com/ByLCY/certify/registry"
	canvasrenderer "github.com/ByLCY/certify/renderer/canvas"
	"github.com/ByLCY/certify/studio"
)

type options struct {
	templates string
	template  string
	dataset   string
	key       string
	name      string
	title     string
	out       string
	format    string
	debug     string
	serve     bool
	addr      string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	var opts options
	flag.StringVar(&opts.templates, "templates", cfg.Templates, "模板 DSL 文件路径")
	flag.StringVar(&opts.template, "template", "participation", "证书模板类型")
	flag.StringVar(&opts.dataset, "dataset", cfg.Dataset, "登记数据源（文件、http(s) URL 或 s3://bucket/key）")
	flag.StringVar(&opts.key, "key", "", "登记编号")
	flag.StringVar(&opts.name, "name", "", "手动填写的姓名（未提供登记编号时使用）")
	flag.StringVar(&opts.title, "title", "", "手动填写的报告题目（未提供登记编号时使用）")
	flag.StringVar(&opts.out, "out", cfg.OutputDir, "证书输出目录")
	flag.StringVar(&opts.format, "format", cfg.ExportFormat, "输出格式 png|jpeg")
	flag.StringVar(&opts.debug, "debug", "", "布局调试 JSON 输出路径")
	flag.BoolVar(&opts.serve, "serve", false, "启动 HTTP 服务")
	flag.StringVar(&opts.addr, "addr", cfg.Addr, "HTTP 监听地址")
	flag.Parse()

	logOpts := []logger.Option{logger.WithEnvironment(cfg.Env, "certify"), logger.WithOutput(os.Stderr)}
	if cfg.LogLevel != "" {
		logOpts = append(logOpts, logger.WithLevel(logger.ParseLevel(cfg.LogLevel)))
	}
	if cfg.LogFormat != "" {
		logOpts = append(logOpts, logger.WithFormat(logger.Format(cfg.LogFormat)))
	}
	lg := logger.New(logOpts...)
	slog.SetDefault(lg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := wire(ctx, cfg, opts, lg)
	if err != nil {
		log.Fatalf("初始化失败: %v", err)
	}

	if opts.serve {
		if err := serve(ctx, app, opts.addr); err != nil {
			log.Fatalf("HTTP 服务异常退出: %v", err)
		}
		return
	}
	if err := run(ctx, app, opts); err != nil {
		log.Fatalf("生成证书失败: %v", err)
	}
}

// app 汇总各组件，CLI 与 HTTP 两种模式共用。
type app struct {
	cfg       config.Config
	logger    *slog.Logger
	templates map[string]layout.Template
	images    *assets.Loader
	registry  *registry.Registry
	renderer  *canvasrenderer.Renderer
	exporter  *export.Exporter
	dataset   string
}

func wire(ctx context.Context, cfg config.Config, opts options, lg *slog.Logger) (*app, error) {
	templates, err := layout.LoadTemplates(opts.templates)
	if err != nil {
		return nil, err
	}
	format, err := export.ParseFormat(opts.format)
	if err != nil {
		return nil, err
	}

	var objects objectstore.Client
	if cfg.Storage == "s3" || objectstore.IsAddress(opts.dataset) {
		client, err := objectstore.New(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		objects = client
	}

	var store export.Store = export.LocalStore{Dir: opts.out}
	if cfg.Storage == "s3" {
		store = export.S3Store{Client: objects, Bucket: cfg.S3.Bucket, Prefix: cfg.StoragePrefix}
	}

	sender, err := mailer.New(cfg.Mail)
	if err != nil {
		return nil, err
	}

	regOpts := []registry.Option{registry.WithLogger(lg)}
	if objects != nil {
		regOpts = append(regOpts, registry.WithObjectClient(objects))
	}

	exporter := export.New(store,
		export.WithSender(sender),
		export.WithFormat(format),
		export.WithLogger(lg),
		export.WithDeliveryTimeout(cfg.DeliveryTimeout))

	return &app{
		cfg:       cfg,
		logger:    lg,
		templates: templates,
		images:    assets.NewLoader(filepath.Dir(opts.templates), assets.WithLogger(lg)),
		registry:  registry.New(regOpts...),
		renderer:  canvasrenderer.NewRenderer(),
		exporter:  exporter,
		dataset:   opts.dataset,
	}, nil
}

// run 串联查询、排版、渲染与导出，生成一张证书。
func run(ctx context.Context, a *app, opts options) error {
	if opts.key != "" {
		if err := a.registry.Load(ctx, a.dataset); err != nil {
			return fmt.Errorf("加载登记数据失败: %w", err)
		}
	}

	session, err := studio.New(studio.Options{
		Renderer:  a.renderer,
		Loader:    a.images,
		Registry:  a.registry,
		Templates: a.templates,
		Debounce:  a.cfg.Debounce,
		Logger:    a.logger,
	})
	if err != nil {
		return err
	}
	defer session.Close()

	if _, err := session.SelectTemplate(ctx, opts.template); err != nil {
		return fmt.Errorf("加载模板失败: %w", err)
	}
	if opts.key != "" {
		snap := session.ResolveKey(opts.key)
		switch snap.Lookup.Status {
		case registry.StatusFound:
			fmt.Printf("已找到登记：%s\n", snap.Lookup.Record.Name)
		case registry.StatusNotFound:
			fmt.Printf("未找到登记编号 %s，仅渲染模板文字\n", snap.Lookup.Key)
		}
	}
	if opts.name != "" {
		session.SetField("name", opts.name)
	}
	if opts.title != "" {
		session.SetField("title", opts.title)
	}

	snap := session.Current()
	if snap.Err != nil {
		return fmt.Errorf("渲染失败: %w", snap.Err)
	}
	if opts.debug != "" {
		if err := writeDebug(snap.Request, a.renderer, opts.debug); err != nil {
			return err
		}
	}

	res, err := session.Export(ctx, a.exporter)
	if err != nil {
		return fmt.Errorf("导出证书失败: %w", err)
	}
	fmt.Printf("已生成证书：%s\n", res.Location)

	delivery, err := res.Delivery().AwaitWithTimeout(a.cfg.DeliveryTimeout + 5*time.Second)
	if err != nil {
		fmt.Printf("邮件投递状态未知：%v\n", err)
		return nil
	}
	switch delivery.Status {
	case export.DeliverySent:
		fmt.Println("证书邮件已发送")
	case export.DeliveryError:
		// 邮件失败不影响已生成的文件
		fmt.Printf("证书邮件发送失败：%s\n", delivery.Error)
	}
	return nil
}

func serve(ctx context.Context, a *app, addr string) error {
	// 数据集在后台加载，完成前查询返回 pending
	go func() {
		if err := a.registry.Load(ctx, a.dataset); err != nil {
			a.logger.Error("dataset unavailable, lookups stay pending", slog.Any("error", err))
		}
	}()

	srv := &http.Server{
		Addr: addr,
		Handler: httpapi.New(httpapi.Deps{
			Templates: a.templates,
			Images:    a.images,
			Registry:  a.registry,
			Renderer:  a.renderer,
			Exporter:  a.exporter,
			Upload:    assets.UploadPolicy{MaxBytes: a.cfg.MaxUploadBytes, AllowedTypes: assets.DefaultAllowedTypes},
			Logger:    a.logger,
		}).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func writeDebug(req layout.RenderRequest, m layout.Measurer, debugPath string) error {
	plan, err := layout.NewPlan(req, m)
	if err != nil {
		return fmt.Errorf("布局计算失败: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := layout.WriteDebugJSON(plan, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}
