// Package spectrum computes summary statistics over [sample, bin] spectra
// matrices: per-bin standard deviation, power-weighted centre of mass, peak
// wavelength and a normalised detection signal.
//
// Power values are reflectance in dB and therefore negative-going; the centre
// of mass weights each wavelength by the negated power.
package spectrum
