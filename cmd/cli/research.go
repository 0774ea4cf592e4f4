package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v2"

	"quant-backtest/internal/alpha"
	"quant-backtest/internal/data"
	"quant-backtest/internal/features"
	"quant-backtest/internal/model"
)

var featuresCommand = &cli.Command{
	Name:  "features",
	Usage: "compute technical features and forward-return labels from bars",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "in",
			Usage:    "bars file (.csv or .json)",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "out",
			Value: "data/features.csv",
			Usage: "feature frame CSV",
		},
		&cli.StringFlag{
			Name:  "benchmark",
			Usage: "label rows against this ticker's forward return (empty skips labels)",
		},
		&cli.IntFlag{
			Name:  "horizon",
			Value: features.DefaultHorizon,
			Usage: "forward return horizon in rows",
		},
		&cli.BoolFlag{
			Name:  "kap",
			Usage: "join KAP headline sentiment per ticker",
		},
	},
	Action: func(c *cli.Context) error {
		bars, err := loadBarsFile(c.String("in"))
		if err != nil {
			return err
		}
		frame, err := buildFeatures(c.Context, bars, c.String("benchmark"), c.Int("horizon"), c.Bool("kap"), logger)
		if err != nil {
			return err
		}
		out := c.String("out")
		if err := ensureDir(out); err != nil {
			return err
		}
		if err := data.WriteFrameCSV(out, frame); err != nil {
			return err
		}
		fmt.Printf("Wrote %d rows x %d columns to %s\n", frame.Len(), len(frame.Columns), out)
		return nil
	},
}

// buildFeatures labels (when benchmark is set), engineers indicators, marks
// index members and optionally joins KAP sentiment.
func buildFeatures(ctx context.Context, bars []model.Bar, benchmark string, horizon int, kap bool, l *slog.Logger) (*model.Frame, error) {
	frame := model.BarsToFrame(bars)
	if benchmark != "" {
		var err error
		if frame, err = features.LabelForward(frame, benchmark, horizon); err != nil {
			return nil, err
		}
	}
	frame, err := features.NewEngineer(l).Generate(frame)
	if err != nil {
		return nil, err
	}
	if err := data.MarkBIST100(frame); err != nil {
		return nil, err
	}
	if kap {
		scores := map[string]float64{}
		headlines, err := data.NewKAPClient("", l).FetchHeadlines(ctx, frame.TickerNames(), 5)
		if err != nil {
			l.Warn("no KAP sentiment, using zeros", "err", err)
		} else {
			scores = data.SentimentByTicker(headlines)
		}
		if err := features.JoinSentiment(frame, scores); err != nil {
			return nil, err
		}
	}
	return frame, nil
}

var trainCommand = &cli.Command{
	Name:  "train",
	Usage: "train an alpha classifier on a labelled feature frame and score every row",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "in",
			Usage:    "feature frame CSV with a target column",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "model",
			Value: "boosting",
			Usage: "boosting, logistic or centroid",
		},
		&cli.StringFlag{
			Name:  "target",
			Value: features.ColTarget,
			Usage: "label column",
		},
		&cli.StringFlag{
			Name:  "out",
			Value: "data/predictions.csv",
			Usage: "feature frame CSV with the score column added",
		},
		&cli.StringFlag{
			Name:  "column",
			Value: "prob",
			Usage: "name of the score column",
		},
	},
	Action: func(c *cli.Context) error {
		frame, err := data.LoadFrameCSV(c.String("in"))
		if err != nil {
			return err
		}
		m, err := alpha.Build(c.String("model"))
		if err != nil {
			return err
		}
		ds, err := alpha.PrepareData(frame, c.String("target"))
		if err != nil {
			return err
		}
		if err := alpha.NewTrainer(logger).Train(m, ds); err != nil {
			return err
		}

		scores, err := alpha.Predict(m, frame, ds.Features)
		if err != nil {
			return err
		}
		if err := frame.AddColumn(c.String("column"), scores); err != nil {
			return err
		}
		out := c.String("out")
		if err := ensureDir(out); err != nil {
			return err
		}
		if err := data.WriteFrameCSV(out, frame); err != nil {
			return err
		}

		fmt.Printf("Model=%s output=%s train=%d test=%d accuracy=%.3f\n",
			m.Name(), m.Output(), len(ds.XTrain), len(ds.XTest), alpha.Accuracy(m.Score(ds.XTest), ds.YTest))
		for i, fi := range alpha.RankImportances(ds.Features, m.Importances()) {
			if i == 10 {
				break
			}
			fmt.Printf("  %-16s %.4f\n", fi.Feature, fi.Score)
		}
		fmt.Printf("Wrote scores to %s (column %q)\n", out, c.String("column"))
		return nil
	},
}
