package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del motor de decisión.
type Config struct {
	Engine   EngineConfig   `yaml:"engine"`
	Channels ChannelsConfig `yaml:"channels"`
	Topology TopologyConfig `yaml:"topology"`
	Sizing   SizingConfig   `yaml:"sizing"`
	Risk     RiskConfig     `yaml:"risk"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
}

// EngineConfig controla el orquestador de decisiones.
type EngineConfig struct {
	TicksPerSecond       float64 `yaml:"ticks_per_second"`        // cadencia del driver (1-10 Hz típico)
	SnapshotWindow       int     `yaml:"snapshot_window"`         // ventana FIFO de snapshots de mercado
	DecisionHistory      int     `yaml:"decision_history"`        // decisiones retenidas para cooldown/rachas
	MinExecuteConfidence float64 `yaml:"min_execute_confidence"`  // por debajo, EXECUTE se degrada a PREPARE
	CooldownExecutions   int     `yaml:"cooldown_executions"`     // ejecuciones dentro de la ventana que activan cooldown
	CooldownWindowSecs   int     `yaml:"cooldown_window_seconds"` // ventana de wall time del cooldown
	CooldownDiscount     float64 `yaml:"cooldown_discount"`       // multiplicador de confianza durante cooldown
	ComplexityDowngrade  float64 `yaml:"complexity_downgrade"`    // complejidad topológica que degrada EXECUTE
	HoleUpgradeMin       float64 `yaml:"hole_upgrade_min"`        // significancia mínima de hole que sube un tier
}

// ChannelsConfig contiene las escalas de normalización de los 6 canales.
// Todas deben ser positivas: el motor falla al arrancar si no lo son.
type ChannelsConfig struct {
	EdgeScale     float64 `yaml:"edge_scale"`      // edge crudo → [0,1]
	TimeScale     float64 `yaml:"time_scale"`      // saturación del canal de presión temporal
	TimeDecayMins float64 `yaml:"time_decay_mins"` // constante del decaimiento exp(-mins/decay)
	MomentumScale float64 `yaml:"momentum_scale"`  // delta de edge → desviación sobre 0.5
}

// TopologyConfig controla el tracker de topología de mercado.
type TopologyConfig struct {
	EdgeThreshold     float64 `yaml:"edge_threshold"`     // edge mínimo para que una feature esté "viva"
	MinPersistence    float64 `yaml:"min_persistence"`    // persistencia mínima para entrar al diagrama
	ClusterEpsilon    float64 `yaml:"cluster_epsilon"`    // radio de conexión en el espacio 4D
	MinClusterSize    int     `yaml:"min_cluster_size"`   // clusters menores se descartan como singletons
	VarianceThreshold float64 `yaml:"variance_threshold"` // varianza de edge que dispara cluster_variance
}

// SizingConfig controla el cálculo de fracciones Kelly y la asignación conjunta.
type SizingConfig struct {
	KellyMultiplier     float64 `yaml:"kelly_multiplier"`      // multiplicador global (0.25 = quarter Kelly)
	MaxBetFraction      float64 `yaml:"max_bet_fraction"`      // cap por oportunidad
	MaxTotalExposure    float64 `yaml:"max_total_exposure"`    // cap de la suma de fracciones
	SameGameCorrelation float64 `yaml:"same_game_correlation"` // correlación fija para pares del mismo juego
	InitialBankroll     float64 `yaml:"initial_bankroll"`      // bankroll en USD hasta que el caller lo fije
}

// RiskConfig controla los gates del RiskManager (se aplican en este orden).
type RiskConfig struct {
	MinEdge               float64 `yaml:"min_edge"`
	MinConfidence         float64 `yaml:"min_confidence"`
	MaxPerGameExposure    float64 `yaml:"max_per_game_exposure"`
	MaxDailyBets          int     `yaml:"max_daily_bets"`
	MaxDailyExposure      float64 `yaml:"max_daily_exposure"`
	StreakReductionFactor float64 `yaml:"streak_reduction_factor"` // fraction *= factor^rachaDePerdidas
}

// StorageConfig controla dónde se persiste el journal de decisiones.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
// Valida las invariantes numéricas: escalas no positivas son un error fatal aquí,
// no una degradación por tick.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// Default devuelve la configuración con todos los defaults aplicados.
// Útil para tests y para el modo --once sin archivo de configuración.
func Default() *Config {
	var cfg Config
	setDefaults(&cfg)
	return &cfg
}

// TickInterval devuelve el intervalo entre ticks como time.Duration.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(float64(time.Second) / c.Engine.TicksPerSecond)
}

// Validate comprueba las invariantes que el motor asume en cada tick.
func (c *Config) Validate() error {
	positives := []struct {
		name  string
		value float64
	}{
		{"channels.edge_scale", c.Channels.EdgeScale},
		{"channels.time_scale", c.Channels.TimeScale},
		{"channels.time_decay_mins", c.Channels.TimeDecayMins},
		{"channels.momentum_scale", c.Channels.MomentumScale},
		{"topology.edge_threshold", c.Topology.EdgeThreshold},
		{"topology.cluster_epsilon", c.Topology.ClusterEpsilon},
		{"topology.variance_threshold", c.Topology.VarianceThreshold},
		{"sizing.max_bet_fraction", c.Sizing.MaxBetFraction},
		{"sizing.max_total_exposure", c.Sizing.MaxTotalExposure},
		{"engine.ticks_per_second", c.Engine.TicksPerSecond},
	}
	for _, p := range positives {
		if p.value <= 0 {
			return fmt.Errorf("validate: %s must be positive, got %v", p.name, p.value)
		}
	}

	unitRange := []struct {
		name  string
		value float64
	}{
		{"sizing.kelly_multiplier", c.Sizing.KellyMultiplier},
		{"sizing.same_game_correlation", c.Sizing.SameGameCorrelation},
		{"risk.streak_reduction_factor", c.Risk.StreakReductionFactor},
		{"engine.cooldown_discount", c.Engine.CooldownDiscount},
	}
	for _, p := range unitRange {
		if p.value < 0 || p.value > 1 {
			return fmt.Errorf("validate: %s must be in [0,1], got %v", p.name, p.value)
		}
	}

	if c.Engine.SnapshotWindow <= 0 {
		return fmt.Errorf("validate: engine.snapshot_window must be positive, got %d", c.Engine.SnapshotWindow)
	}
	return nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("GEOBET_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Engine.TicksPerSecond <= 0 {
		cfg.Engine.TicksPerSecond = 1
	}
	if cfg.Engine.SnapshotWindow <= 0 {
		cfg.Engine.SnapshotWindow = 120
	}
	if cfg.Engine.DecisionHistory <= 0 {
		cfg.Engine.DecisionHistory = 50
	}
	if cfg.Engine.MinExecuteConfidence <= 0 {
		cfg.Engine.MinExecuteConfidence = 0.55
	}
	if cfg.Engine.CooldownExecutions <= 0 {
		cfg.Engine.CooldownExecutions = 3
	}
	if cfg.Engine.CooldownWindowSecs <= 0 {
		cfg.Engine.CooldownWindowSecs = 60
	}
	if cfg.Engine.CooldownDiscount <= 0 {
		cfg.Engine.CooldownDiscount = 0.8
	}
	if cfg.Engine.ComplexityDowngrade <= 0 {
		cfg.Engine.ComplexityDowngrade = 0.7
	}
	if cfg.Engine.HoleUpgradeMin <= 0 {
		cfg.Engine.HoleUpgradeMin = 0.5
	}

	if cfg.Channels.EdgeScale <= 0 {
		cfg.Channels.EdgeScale = 10
	}
	if cfg.Channels.TimeScale <= 0 {
		cfg.Channels.TimeScale = 1
	}
	if cfg.Channels.TimeDecayMins <= 0 {
		cfg.Channels.TimeDecayMins = 20
	}
	if cfg.Channels.MomentumScale <= 0 {
		cfg.Channels.MomentumScale = 5
	}

	if cfg.Topology.EdgeThreshold <= 0 {
		cfg.Topology.EdgeThreshold = 0.02
	}
	if cfg.Topology.MinPersistence <= 0 {
		cfg.Topology.MinPersistence = 0.05
	}
	if cfg.Topology.ClusterEpsilon <= 0 {
		cfg.Topology.ClusterEpsilon = 0.5
	}
	if cfg.Topology.MinClusterSize <= 0 {
		cfg.Topology.MinClusterSize = 2
	}
	if cfg.Topology.VarianceThreshold <= 0 {
		cfg.Topology.VarianceThreshold = 0.002
	}

	if cfg.Sizing.KellyMultiplier <= 0 {
		cfg.Sizing.KellyMultiplier = 0.25 // quarter Kelly
	}
	if cfg.Sizing.MaxBetFraction <= 0 {
		cfg.Sizing.MaxBetFraction = 0.05
	}
	if cfg.Sizing.MaxTotalExposure <= 0 {
		cfg.Sizing.MaxTotalExposure = 0.20
	}
	if cfg.Sizing.SameGameCorrelation <= 0 {
		cfg.Sizing.SameGameCorrelation = 0.7
	}
	if cfg.Sizing.InitialBankroll <= 0 {
		cfg.Sizing.InitialBankroll = 1000
	}

	if cfg.Risk.MinEdge <= 0 {
		cfg.Risk.MinEdge = 0.02
	}
	if cfg.Risk.MinConfidence <= 0 {
		cfg.Risk.MinConfidence = 0.5
	}
	if cfg.Risk.MaxPerGameExposure <= 0 {
		cfg.Risk.MaxPerGameExposure = 0.10
	}
	if cfg.Risk.MaxDailyBets <= 0 {
		cfg.Risk.MaxDailyBets = 20
	}
	if cfg.Risk.MaxDailyExposure <= 0 {
		cfg.Risk.MaxDailyExposure = 0.5
	}
	if cfg.Risk.StreakReductionFactor <= 0 {
		cfg.Risk.StreakReductionFactor = 0.5
	}

	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "geobet.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
