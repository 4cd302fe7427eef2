// Package hyperion loads the text output files written by a four-channel
// fiber-optic interrogator and reorganises them into per-channel time series
// of spectra.
//
// A file starts with a header whose first line declares the number of header
// lines. The remainder interleaves timestamp lines with tab-separated spectra;
// every acquisition writes all four hardware channels in order, whether or not
// they are in use. Load parses the header, classifies the remaining lines,
// drops the startup acquisition, deinterleaves the spectra by channel and
// converts timestamps to seconds from the first retained acquisition.
//
// Loading is eager and atomic: Load returns a complete SingleChannelDataset or
// MultiChannelDataset, or an error and nothing else.
package hyperion
