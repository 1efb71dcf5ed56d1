// SPDX-License-Identifier: MIT
package config

// Merge layers f onto c: the Audio fields, Recording.Enabled, the
// Transport addresses and switch, and Debug overwrite their Config
// counterparts; Transport.PublishInterval and Command overwrite only when
// set; LogLevel and Recording.OutputDir are not carried over. cmd.ParseArgs
// does not call Merge, so the CLI never combines a FileConfig with flags.
func (c *Config) Merge(f *FileConfig) {
	if f == nil {
		return
	}
	c.DeviceID = f.Audio.OutputDevice
	c.SampleRate = f.Audio.SampleRate
	c.FramesPerBuffer = f.Audio.FramesPerBuffer
	c.LowLatency = f.Audio.LowLatency
	c.Channels = f.Audio.OutputChannels
	c.FFTSize = f.Audio.FFTSize

	c.RecordOnStart = f.Recording.Enabled

	c.TelemetryEnabled = f.Transport.Enabled
	c.TelemetryWSAddr = f.Transport.WSAddr
	c.TelemetryUDPAddr = f.Transport.UDPAddr
	if f.Transport.PublishInterval > 0 {
		c.TelemetryInterval = f.Transport.PublishInterval
	}

	c.Verbose = f.Debug
	if f.Command != "" {
		c.Command = f.Command
	}
}
