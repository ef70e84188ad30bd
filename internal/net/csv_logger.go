package net

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// CSVLogger logs training progress to a CSV file.
type CSVLogger struct {
	BaseCallback
	Filename string
	Append   bool
	Log      logrus.FieldLogger

	file   *os.File
	writer *csv.Writer
	start  time.Time
}

// NewCSVLogger creates a new CSVLogger.
func NewCSVLogger(filename string, append bool, log logrus.FieldLogger) *CSVLogger {
	return &CSVLogger{
		Filename: filename,
		Append:   append,
		Log:      log,
	}
}

func (c *CSVLogger) warn(err error, msg string) {
	if c.Log != nil {
		c.Log.WithError(err).WithField("file", c.Filename).Warn(msg)
	}
}

func (c *CSVLogger) OnTrainBegin(n *Network) {
	mode := os.O_CREATE | os.O_WRONLY
	if c.Append {
		mode |= os.O_APPEND
	} else {
		mode |= os.O_TRUNC
	}

	file, err := os.OpenFile(c.Filename, mode, 0644)
	if err != nil {
		c.warn(err, "csv logger: failed to open file")
		return
	}
	c.file = file
	c.writer = csv.NewWriter(file)
	c.start = time.Now()

	// Write header if not appending or if file is empty
	info, err := file.Stat()
	if err == nil && (info.Size() == 0 || !c.Append) {
		c.writer.Write([]string{"epoch", "loss", "learning_rate", "time_seconds"})
		c.writer.Flush()
	}
}

func (c *CSVLogger) OnEpochEnd(epoch int, loss float64, n *Network) {
	if c.writer == nil {
		return
	}

	record := []string{
		strconv.Itoa(epoch),
		fmt.Sprintf("%.6f", loss),
		strconv.FormatFloat(n.opt.LearningRate(), 'g', -1, 64),
		fmt.Sprintf("%.2f", time.Since(c.start).Seconds()),
	}

	if err := c.writer.Write(record); err != nil {
		c.warn(err, "csv logger: failed to write record")
	}
	c.writer.Flush()
}

func (c *CSVLogger) OnTrainEnd(n *Network) {
	if c.file != nil {
		c.writer.Flush()
		c.file.Close()
		c.file = nil
		c.writer = nil
	}
}
